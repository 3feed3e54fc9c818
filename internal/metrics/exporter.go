// Package metrics exports run standings in Prometheus text format, suitable
// for the node_exporter textfile collector.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// Exporter holds standings gauges in a private registry.
type Exporter struct {
	registry *prometheus.Registry

	runScore       *prometheus.GaugeVec
	runRank        *prometheus.GaugeVec
	runTopics      *prometheus.GaugeVec
	judgedTopics   prometheus.Gauge
	lastEvaluation prometheus.Gauge
}

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		runScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rice_eval_run_score",
				Help: "Summary metric of a run over all judged topics.",
			},
			[]string{"run", "metric"},
		),
		runRank: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rice_eval_run_rank",
				Help: "1-based position of a run in the standings.",
			},
			[]string{"run"},
		),
		runTopics: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rice_eval_run_topics_retrieved",
				Help: "Judged topics the run returned at least one document for.",
			},
			[]string{"run"},
		),
		judgedTopics: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rice_eval_judged_topics",
			Help: "Topics with at least one judgment.",
		}),
		lastEvaluation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rice_eval_last_evaluation_timestamp_seconds",
			Help: "Unix time of the last evaluation.",
		}),
	}
}

// Observe replaces the exported values with standings evaluated at time at.
func (e *Exporter) Observe(standings []evaluation.Standing, judgedTopics int, at time.Time) {
	e.runScore.Reset()
	e.runRank.Reset()
	e.runTopics.Reset()

	for _, s := range standings {
		for _, metric := range evaluation.MetricNames {
			value, _ := s.Metric(metric)
			e.runScore.WithLabelValues(s.Run, metric).Set(value)
		}
		e.runRank.WithLabelValues(s.Run).Set(float64(s.Rank))
		e.runTopics.WithLabelValues(s.Run).Set(float64(s.TopicsRetrieved))
	}

	e.judgedTopics.Set(float64(judgedTopics))
	e.lastEvaluation.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the current values to path.
func (e *Exporter) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
