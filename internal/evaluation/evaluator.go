package evaluation

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ricesearch/rice-eval/internal/trec"
)

// Evaluator scores runs against one judgment set. It is safe for
// concurrent use once constructed.
type Evaluator struct {
	topics   []string
	relevant map[string]map[string]struct{} // topic -> relevant docs
}

// NewEvaluator creates an evaluator over the given judgments.
func NewEvaluator(qrels *trec.Qrels) *Evaluator {
	topics := qrels.Topics()
	relevant := make(map[string]map[string]struct{}, len(topics))
	for _, topic := range topics {
		relevant[topic] = qrels.Relevant(topic)
	}

	return &Evaluator{
		topics:   topics,
		relevant: relevant,
	}
}

// Topics returns the number of judged topics.
func (e *Evaluator) Topics() int {
	return len(e.topics)
}

// EvaluateTopic scores one topic's ranked list.
func (e *Evaluator) EvaluateTopic(topic string, retrieved []string) TopicResult {
	relevant := e.relevant[topic]

	return TopicResult{
		Topic:     topic,
		Retrieved: len(retrieved),
		Relevant:  len(relevant),
		AP:        AveragePrecision(retrieved, relevant),
		P5:        PrecisionAt(retrieved, relevant, CutoffShallow),
		P20:       PrecisionAt(retrieved, relevant, CutoffDeep),
		NDCG20:    NDCGAt(retrieved, relevant, CutoffDeep),
		Recall20:  RecallAt(retrieved, relevant, CutoffDeep),
		RR:        ReciprocalRank(retrieved, relevant),
	}
}

// EvaluateRun scores every judged topic. Topics the run never addressed
// score zero and still count towards the means. Run topics without
// judgments are ignored.
func (e *Evaluator) EvaluateRun(run *trec.Run) *RunSummary {
	results := make([]TopicResult, 0, len(e.topics))
	for _, topic := range e.topics {
		results = append(results, e.EvaluateTopic(topic, run.Ranked(topic)))
	}
	summary := Summarize(run.Name(), results)
	summary.Checksum = run.Checksum()
	return summary
}

// Summarize aggregates topic results into a run summary.
func Summarize(run string, results []TopicResult) *RunSummary {
	summary := &RunSummary{
		Run:      run,
		Topics:   len(results),
		PerTopic: results,
	}
	if len(results) == 0 {
		return summary
	}

	n := len(results)
	ap := make([]float64, n)
	p5 := make([]float64, n)
	p20 := make([]float64, n)
	ndcg := make([]float64, n)
	recall := make([]float64, n)
	rr := make([]float64, n)
	for i, r := range results {
		ap[i] = r.AP
		p5[i] = r.P5
		p20[i] = r.P20
		ndcg[i] = r.NDCG20
		recall[i] = r.Recall20
		rr[i] = r.RR
		if r.Retrieved > 0 {
			summary.TopicsRetrieved++
		}
	}

	summary.MAP = stat.Mean(ap, nil)
	summary.P5 = stat.Mean(p5, nil)
	summary.P20 = stat.Mean(p20, nil)
	summary.NDCG20 = stat.Mean(ndcg, nil)
	summary.MeanRecall20 = stat.Mean(recall, nil)
	summary.MRR = stat.Mean(rr, nil)
	if n > 1 {
		summary.APStdDev = stat.StdDev(ap, nil)
	}

	return summary
}
