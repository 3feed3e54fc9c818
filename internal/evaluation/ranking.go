package evaluation

import "sort"

// Rank orders run summaries by MAP, then nDCG@20, then P@20, all
// descending. Runs that tie on all three keep their input order.
func Rank(summaries []*RunSummary) []Standing {
	ordered := make([]*RunSummary, len(summaries))
	copy(ordered, summaries)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ranksAhead(ordered[i], ordered[j])
	})

	standings := make([]Standing, len(ordered))
	for i, s := range ordered {
		standings[i] = Standing{Rank: i + 1, RunSummary: *s}
	}
	return standings
}

// ranksAhead reports whether a should be placed before b.
func ranksAhead(a, b *RunSummary) bool {
	if a.MAP != b.MAP {
		return a.MAP > b.MAP
	}
	if a.NDCG20 != b.NDCG20 {
		return a.NDCG20 > b.NDCG20
	}
	return a.P20 > b.P20
}
