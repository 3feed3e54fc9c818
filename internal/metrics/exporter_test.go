package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-eval/internal/evaluation"
)

func sampleStandings() []evaluation.Standing {
	return []evaluation.Standing{
		{Rank: 1, RunSummary: evaluation.RunSummary{Run: "b.run", TopicsRetrieved: 2, MAP: 0.75, P5: 0.4, MRR: 1}},
		{Rank: 2, RunSummary: evaluation.RunSummary{Run: "a.run", TopicsRetrieved: 1, MAP: 0.5}},
	}
}

func TestExporter_Observe(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleStandings(), 2, time.Unix(1700000000, 0))

	assert.Equal(t, 0.75, testutil.ToFloat64(e.runScore.WithLabelValues("b.run", evaluation.MetricMAP)))
	assert.Equal(t, 0.4, testutil.ToFloat64(e.runScore.WithLabelValues("b.run", evaluation.MetricP5)))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.runRank.WithLabelValues("a.run")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.runTopics.WithLabelValues("b.run")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.judgedTopics))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(e.lastEvaluation))

	// 2 runs x 6 summary metrics
	assert.Equal(t, 12, testutil.CollectAndCount(e.runScore))
}

func TestExporter_ObserveReplacesPreviousRuns(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleStandings(), 2, time.Now())
	e.Observe(sampleStandings()[:1], 2, time.Now())

	assert.Equal(t, 1, testutil.CollectAndCount(e.runRank))
}

func TestExporter_WriteTextfile(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleStandings(), 2, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "textfile", "rice_eval.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# TYPE rice_eval_run_score gauge")
	assert.Contains(t, text, `rice_eval_run_score{metric="map",run="b.run"} 0.75`)
	assert.Contains(t, text, `rice_eval_run_rank{run="a.run"} 2`)
	assert.True(t, strings.HasSuffix(text, "\n"))
}
