// Package main provides the rice-eval binary.
// It scores TREC-format runs against relevance judgments and writes standings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-eval/internal/config"
	apperrors "github.com/ricesearch/rice-eval/internal/pkg/errors"
	"github.com/ricesearch/rice-eval/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if apperrors.IsValidation(err) {
			fmt.Fprintln(stderr, "Run 'rice-eval --help' for usage.")
		}
		return apperrors.ExitCode(err)
	}
	return 0
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	verbose    bool
	logFormat  string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "rice-eval",
		Short: "Rice Eval - offline retrieval evaluation",
		Long: `Rice Eval scores ranked retrieval runs against relevance judgments
and ranks the runs by MAP, then nDCG@20, then P@20.

Run 'rice-eval evaluate qrels.txt a.run b.run' to write standings.
Run 'rice-eval --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(
		newEvaluateCmd(g),
		newQrelsCmd(g),
		newHistoryCmd(g),
		newEventsCmd(g),
		newVersionCmd(g),
	)

	return rootCmd
}

// setup loads configuration and builds the logger. Flags applied by the
// caller through override take precedence over file and environment values.
func (g *globalOptions) setup(override func(cfg *config.Config)) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Read(g.configPath)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, nil, err
		}
		return nil, nil, apperrors.Wrap(apperrors.CodeValidation, "failed to load config", err)
	}

	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeValidation, "invalid options", err)
	}

	log := logger.NewWithWriter(g.stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.IsDevelopment() {
		log.Debug("Configuration loaded",
			"config_file", g.configPath,
			"workers", cfg.Eval.Workers,
			"bus", cfg.Bus.Type,
			"history", cfg.History.Enabled,
		)
	}
	return cfg, log, nil
}

func newVersionCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(g.stdout, "rice-eval %s\n", version)
			fmt.Fprintf(g.stdout, "  commit: %s\n", commit)
			fmt.Fprintf(g.stdout, "  built:  %s\n", date)
		},
	}
}

// argsAtLeast is cobra.MinimumNArgs reporting a validation error.
func argsAtLeast(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return apperrors.ValidationError(err.Error())
		}
		return nil
	}
}

// argsExactly is cobra.ExactArgs reporting a validation error.
func argsExactly(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return apperrors.ValidationError(err.Error())
		}
		return nil
	}
}

// argsAtMost is cobra.MaximumNArgs reporting a validation error.
func argsAtMost(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return apperrors.ValidationError(err.Error())
		}
		return nil
	}
}
