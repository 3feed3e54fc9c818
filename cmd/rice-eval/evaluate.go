package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-eval/internal/bus"
	"github.com/ricesearch/rice-eval/internal/config"
	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/history"
	"github.com/ricesearch/rice-eval/internal/metrics"
	reqctx "github.com/ricesearch/rice-eval/internal/pkg/context"
	apperrors "github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/pkg/hash"
	"github.com/ricesearch/rice-eval/internal/pkg/logger"
	"github.com/ricesearch/rice-eval/internal/report"
	"github.com/ricesearch/rice-eval/internal/trec"
	"github.com/ricesearch/rice-eval/internal/watch"
)

const eventSource = "rice-eval"

type evaluateOptions struct {
	outCSV   string
	outMD    string
	outHTML  string
	outJSON  string
	promFile string
	workers  int
	progress bool
	watch    bool
}

func newEvaluateCmd(g *globalOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate QRELS RUN [RUN...]",
		Short: "Score runs against judgments and write standings",
		Long: `Score one or more TREC run files against a qrels file.

Each run is summarized by MAP, P@5, P@20 and nDCG@20 averaged over every
judged topic, then runs are ranked by MAP, nDCG@20 and P@20 in that order.

Examples:
  rice-eval evaluate qrels.txt runs/bm25.run runs/dense.run
  rice-eval evaluate qrels.txt runs/*.run --out-html out/standings.html
  rice-eval evaluate qrels.txt runs/*.run --workers 8 --progress`,
		Args: argsAtLeast(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.setup(func(cfg *config.Config) {
				opts.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := runEvaluate(ctx, g, cfg, log, args[0], args[1:], opts.progress); err != nil {
				return err
			}
			if !opts.watch {
				return nil
			}
			return watchAndEvaluate(ctx, g, cfg, log, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.outCSV, "out-csv", "standings.csv", "CSV standings path (empty to skip)")
	cmd.Flags().StringVar(&opts.outMD, "out-md", "standings.md", "Markdown standings path (empty to skip)")
	cmd.Flags().StringVar(&opts.outHTML, "out-html", "", "HTML standings path")
	cmd.Flags().StringVar(&opts.outJSON, "out-json", "", "JSON standings path, with per-topic results")
	cmd.Flags().StringVar(&opts.promFile, "prom-file", "", "Prometheus textfile to export scores to")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "run files evaluated concurrently")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-evaluate whenever the qrels or a run file changes")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (o *evaluateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("out-csv") {
		cfg.Report.CSVPath = o.outCSV
	}
	if flags.Changed("out-md") {
		cfg.Report.MarkdownPath = o.outMD
	}
	if flags.Changed("out-html") {
		cfg.Report.HTMLPath = o.outHTML
	}
	if flags.Changed("out-json") {
		cfg.Report.JSONPath = o.outJSON
	}
	if flags.Changed("prom-file") {
		cfg.Metrics.PromFile = o.promFile
	}
	if flags.Changed("workers") {
		cfg.Eval.Workers = o.workers
	}
}

func runEvaluate(ctx context.Context, g *globalOptions, cfg *config.Config, log *logger.Logger, qrelsPath string, runPaths []string, showProgress bool) error {
	start := time.Now()
	correlationID := uuid.NewString()
	ctx = reqctx.WithCorrelationID(ctx, correlationID)
	log = &logger.Logger{Logger: log.With("correlation_id", correlationID)}

	qrels, err := trec.LoadQrels(qrelsPath)
	if err != nil {
		return err
	}
	log.WithFile(qrelsPath).Info("Loaded judgments",
		"topics", qrels.Len(),
		"sha256", hash.Short(qrels.Checksum(), 12),
	)

	if dups := duplicateRunNames(runPaths); len(dups) > 0 {
		log.Warn("Run files share a name; their history and metrics series will overwrite each other",
			"names", dups)
	}

	ev := evaluation.NewEvaluator(qrels)

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(runPaths),
			progressbar.OptionSetWriter(g.stderr),
			progressbar.OptionSetDescription("evaluating runs"),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(g.stderr) }),
		)
	}

	summaries, err := evaluation.EvaluateFiles(ctx, ev, runPaths, evaluation.BatchOptions{
		Workers: cfg.Eval.Workers,
		OnRun: func(done, total int, s *evaluation.RunSummary) {
			log.WithRun(s.Run).Debug("Run evaluated",
				"done", done,
				"total", total,
				"map", s.MAP,
				"topics_retrieved", s.TopicsRetrieved,
			)
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
	if err != nil {
		return err
	}

	standings := evaluation.Rank(summaries)
	rep := &report.Report{
		Qrels:         qrels.Name(),
		QrelsChecksum: qrels.Checksum(),
		Topics:        ev.Topics(),
		Standings:     standings,
	}

	written, err := report.WriteFiles(rep, report.Paths{
		CSV:      cfg.Report.CSVPath,
		Markdown: cfg.Report.MarkdownPath,
		HTML:     cfg.Report.HTMLPath,
		JSON:     cfg.Report.JSONPath,
	})
	if err != nil {
		return err
	}

	// Side channels never fail an evaluation whose reports were written
	publishEvents(ctx, cfg, log, rep)
	recordHistory(ctx, cfg, log, standings, start)
	exportMetrics(cfg, log, rep, start)

	log.Info("Evaluation complete",
		"runs", len(standings),
		"topics", rep.Topics,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(written) > 0 {
		fmt.Fprintf(g.stdout, "Wrote standings to %s\n", joinPaths(written))
	}
	return nil
}

// watchAndEvaluate re-runs the evaluation on every batch of input changes
// until ctx is cancelled. Failed re-evaluations are logged, not returned.
func watchAndEvaluate(ctx context.Context, g *globalOptions, cfg *config.Config, log *logger.Logger, qrelsPath string, runPaths []string) error {
	paths := append([]string{qrelsPath}, runPaths...)
	w, err := watch.NewWatcher(watch.Config{
		Paths:  paths,
		Logger: log,
		OnChange: func(ctx context.Context, changed []string) {
			log.Info("Inputs changed, re-evaluating", "files", changed)
			err := runEvaluate(ctx, g, cfg, log, qrelsPath, runPaths, false)
			switch {
			case err == nil:
			case apperrors.IsParse(err), apperrors.IsNotFound(err):
				// Usually a file caught mid-write; the next write retries
				log.WithError(err).Warn("Inputs not evaluable yet, waiting for the next change")
			default:
				log.WithError(err).Error("Re-evaluation failed")
			}
		},
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	select {
	case <-w.Ready():
		fmt.Fprintf(g.stdout, "Watching %d files for changes\n", len(paths))
	case err := <-errCh:
		return err
	}

	err = <-errCh
	batches, last := w.Stats()
	log.Info("Stopped watching", "re_evaluations", batches, "last", last)
	if ctx.Err() != nil {
		// Interrupted
		return nil
	}
	return err
}

// duplicateRunNames returns run names shared by more than one path, sorted.
func duplicateRunNames(paths []string) []string {
	seen := make(map[string]int, len(paths))
	var dups []string
	for _, p := range paths {
		name := filepath.Base(p)
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

// joinPaths formats paths as "a", "a and b" or "a, b and c".
func joinPaths(paths []string) string {
	switch len(paths) {
	case 0:
		return ""
	case 1:
		return paths[0]
	}
	return strings.Join(paths[:len(paths)-1], ", ") + " and " + paths[len(paths)-1]
}

// runEvaluatedPayload is the payload of TopicRunEvaluated events.
type runEvaluatedPayload struct {
	Qrels string                 `json:"qrels"`
	Rank  int                    `json:"rank"`
	Run   *evaluation.RunSummary `json:"run"`
}

func publishEvents(ctx context.Context, cfg *config.Config, log *logger.Logger, rep *report.Report) {
	if cfg.Bus.Type == "memory" && cfg.Bus.EventLog == "" {
		// Nobody could observe in-process events
		return
	}
	correlationID := reqctx.GetCorrelationID(ctx)

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		log.WithError(err).Warn("Event bus unavailable, events not published")
		return
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close event bus")
		}
	}()

	for i := range rep.Standings {
		s := &rep.Standings[i]
		payload := runEvaluatedPayload{
			Qrels: rep.Qrels,
			Rank:  s.Rank,
			Run:   &s.RunSummary,
		}
		event := bus.NewEvent(bus.TopicRunEvaluated, eventSource, correlationID, payload)
		if err := b.Publish(ctx, bus.TopicRunEvaluated, event); err != nil {
			log.WithRun(s.Run).WithError(err).Warn("Failed to publish run event")
			return
		}
	}

	event := bus.NewEvent(bus.TopicStandingsPublished, eventSource, correlationID, rep)
	if err := b.Publish(ctx, bus.TopicStandingsPublished, event); err != nil {
		log.WithError(err).Warn("Failed to publish standings event")
		return
	}
	log.Debug("Published evaluation events", "bus", cfg.Bus.Type, "runs", len(rep.Standings))
}

func recordHistory(ctx context.Context, cfg *config.Config, log *logger.Logger, standings []evaluation.Standing, at time.Time) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.NewStore(cfg.History.RedisURL, cfg.History.Prefix, time.Duration(cfg.History.TTLHours)*time.Hour)
	if err != nil {
		log.WithError(err).Warn("Run history unavailable, summaries not recorded")
		return
	}
	defer store.Close()

	for i := range standings {
		s := &standings[i].RunSummary
		if err := store.Record(ctx, s, at); err != nil {
			log.WithRun(s.Run).WithError(err).Warn("Failed to record run history")
			return
		}
	}
	log.Debug("Recorded run history", "runs", len(standings))
}

func exportMetrics(cfg *config.Config, log *logger.Logger, rep *report.Report, at time.Time) {
	if cfg.Metrics.PromFile == "" {
		return
	}

	exporter := metrics.NewExporter()
	exporter.Observe(rep.Standings, rep.Topics, at)
	if err := exporter.WriteTextfile(cfg.Metrics.PromFile); err != nil {
		log.WithError(err).Warn("Failed to export metrics")
		return
	}
	log.Debug("Exported metrics", "path", cfg.Metrics.PromFile)
}
