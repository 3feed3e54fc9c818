package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-eval/internal/config"
	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/history"
	apperrors "github.com/ricesearch/rice-eval/internal/pkg/errors"
)

type historyOptions struct {
	metric   string
	since    time.Duration
	redisURL string
	delete   bool
}

func newHistoryCmd(g *globalOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history [RUN]",
		Short: "Show recorded scores of a run",
		Long: `Print the recorded values of one metric for a run, oldest first.
Without RUN, list the runs that have recorded history. With --delete,
remove every recorded metric of RUN instead.

Examples:
  rice-eval history
  rice-eval history bm25.run --metric ndcg20 --since 168h
  rice-eval history bm25.run --delete`,
		Args: argsAtMost(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.setup(func(cfg *config.Config) {
				if opts.redisURL != "" {
					cfg.History.RedisURL = opts.redisURL
				}
			})
			if err != nil {
				return err
			}
			if opts.since < 0 {
				return apperrors.ValidationError("--since must not be negative")
			}
			if opts.delete && len(args) == 0 {
				return apperrors.ValidationError("--delete requires a run name")
			}

			store, err := history.NewStore(cfg.History.RedisURL, cfg.History.Prefix, 0)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()

			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				for _, run := range runs {
					fmt.Fprintln(g.stdout, run)
				}
				return nil
			}

			if opts.delete {
				if err := store.DeleteRun(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(g.stdout, "Deleted history for %s\n", args[0])
				return nil
			}

			var since time.Time
			if opts.since > 0 {
				since = time.Now().Add(-opts.since)
			}
			points, err := store.LoadHistory(ctx, args[0], opts.metric, since)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				fmt.Fprintf(g.stdout, "No history for %s\n", args[0])
				return nil
			}

			tw := tabwriter.NewWriter(g.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\t%s\n", opts.metric)
			for _, p := range points {
				fmt.Fprintf(tw, "%s\t%.4f\n", p.Timestamp.Format(time.RFC3339), p.Value)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&opts.metric, "metric", "m", evaluation.MetricMAP, "metric to show (map, p5, p20, ndcg20, recall20, mrr)")
	cmd.Flags().DurationVar(&opts.since, "since", 24*time.Hour, "how far back to look (0 for all)")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL (overrides config)")
	cmd.Flags().BoolVar(&opts.delete, "delete", false, "delete the recorded history of RUN")

	return cmd
}
