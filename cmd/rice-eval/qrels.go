package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-eval/internal/config"
	"github.com/ricesearch/rice-eval/internal/qrelsgen"
	"github.com/ricesearch/rice-eval/internal/trec"
)

type qrelsOptions struct {
	out   string
	rate  float64
	seed  int64
	depth int
}

func newQrelsCmd(g *globalOptions) *cobra.Command {
	opts := &qrelsOptions{}

	cmd := &cobra.Command{
		Use:   "qrels RUN",
		Short: "Generate synthetic judgments from a run",
		Long: `Mark a seeded random sample of each topic's retrieved documents as
relevant and write the result as a qrels file. Useful for demos and smoke
tests when no real judgments exist; scores against these are meaningless.`,
		Args: argsExactly(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.setup(func(cfg *config.Config) {
				if cmd.Flags().Changed("rate") {
					cfg.Generator.RelevanceRate = opts.rate
				}
				if cmd.Flags().Changed("seed") {
					cfg.Generator.Seed = opts.seed
				}
				if cmd.Flags().Changed("fallback-depth") {
					cfg.Generator.FallbackDepth = opts.depth
				}
			})
			if err != nil {
				return err
			}

			gen, err := qrelsgen.New(qrelsgen.Options{
				RelevanceRate: cfg.Generator.RelevanceRate,
				Seed:          cfg.Generator.Seed,
				FallbackDepth: cfg.Generator.FallbackDepth,
			})
			if err != nil {
				return err
			}

			run, err := trec.LoadRun(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(g.stdout, "Found %d topics in run file\n", run.Len())

			judgments := gen.Generate(run)
			if err := qrelsgen.WriteFile(opts.out, judgments); err != nil {
				return err
			}

			log.WithFile(opts.out).Debug("Generated judgments",
				"judgments", len(judgments),
				"rate", cfg.Generator.RelevanceRate,
				"seed", cfg.Generator.Seed,
			)
			fmt.Fprintf(g.stdout, "Qrels written to: %s\n", opts.out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "out/qrels.demo.txt", "output qrels path")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0.25, "target share of relevant documents per topic")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed")
	cmd.Flags().IntVar(&opts.depth, "fallback-depth", 3, "documents marked relevant when sampling selects none")

	return cmd
}
