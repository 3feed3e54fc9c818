package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-eval/internal/bus"
	"github.com/ricesearch/rice-eval/internal/config"
	apperrors "github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/pkg/logger"
)

type eventsOptions struct {
	logPath string
	since   time.Duration
	limit   int
}

func newEventsCmd(g *globalOptions) *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect or replay the evaluation event log",
		Long: `Read the JSON lines event log written by 'evaluate' when bus.event_log
is configured, or publish its events again to the configured bus.`,
	}

	cmd.PersistentFlags().StringVar(&opts.logPath, "log", "", "event log path (overrides bus.event_log)")
	cmd.PersistentFlags().DurationVar(&opts.since, "since", 0, "only events logged within this duration (0 for all)")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print logged events, oldest first",
		Args:  argsExactly(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, path, since, err := opts.setup(g)
			if err != nil {
				return err
			}

			events, err := bus.ReadEvents(path, since, opts.limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintf(g.stdout, "No events in %s\n", path)
				return nil
			}

			tw := tabwriter.NewWriter(g.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTOPIC\tID\tCORRELATION")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.RFC3339), e.Topic, e.Event.ID, e.Event.CorrelationID)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of events (0 for all)")

	replay := &cobra.Command{
		Use:   "replay",
		Short: "Publish logged events to the configured bus",
		Long: `Publish logged events, in order, to the bus selected by bus.type.
With the kafka bus this re-delivers past evaluations to consumers. With the
memory bus every replayed event is logged locally instead.

Examples:
  RICE_EVAL_BUS_TYPE=kafka RICE_EVAL_KAFKA_BROKERS=k1:9092 rice-eval events replay --since 24h
  rice-eval events replay --log out/events.jsonl -v`,
		Args: argsExactly(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, path, since, err := opts.setup(g)
			if err != nil {
				return err
			}

			// The target must not append to the log being replayed
			target := cfg.Bus
			target.EventLog = ""

			b, err := bus.NewBus(target, log)
			if err != nil {
				return err
			}
			if mem, ok := b.(*bus.MemoryBus); ok {
				if err := subscribeLogging(mem, log); err != nil {
					b.Close()
					return err
				}
			}

			n, err := bus.Replay(cmd.Context(), path, b, since)
			// Close drains in-flight memory handlers
			if cerr := b.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(g.stdout, "Replayed %d events to %s bus\n", n, target.Type)
			return nil
		},
	}

	cmd.AddCommand(list, replay)
	return cmd
}

// setup resolves configuration, the event log path and the lower time bound.
func (o *eventsOptions) setup(g *globalOptions) (*config.Config, *logger.Logger, string, time.Time, error) {
	cfg, log, err := g.setup(func(cfg *config.Config) {
		if o.logPath != "" {
			cfg.Bus.EventLog = o.logPath
		}
	})
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}
	if cfg.Bus.EventLog == "" {
		return nil, nil, "", time.Time{}, apperrors.ValidationError("no event log configured (set bus.event_log or --log)")
	}
	if o.since < 0 {
		return nil, nil, "", time.Time{}, apperrors.ValidationError("--since must not be negative")
	}
	if o.limit < 0 {
		return nil, nil, "", time.Time{}, apperrors.ValidationError("--limit must not be negative")
	}

	var since time.Time
	if o.since > 0 {
		since = time.Now().Add(-o.since)
	}
	return cfg, log, cfg.Bus.EventLog, since, nil
}

func subscribeLogging(mem *bus.MemoryBus, log *logger.Logger) error {
	handler := func(ctx context.Context, event bus.Event) error {
		log.Info("Replayed event",
			"type", event.Type,
			"event_id", event.ID,
			"correlation_id", event.CorrelationID,
		)
		return nil
	}
	for _, topic := range []string{bus.TopicRunEvaluated, bus.TopicStandingsPublished} {
		if err := mem.Subscribe(topic, handler); err != nil {
			return err
		}
	}
	return nil
}
