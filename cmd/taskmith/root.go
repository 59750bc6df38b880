package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmith/taskmith/cascade"
	_ "github.com/taskmith/taskmith/providers"
)

// rootFlags are shared across subcommands.
type rootFlags struct {
	root    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "taskmith",
		Short: "Generate structured task lists from requirements documents",
		Long: `taskmith parses a requirements document and generates a dependency
ordered task list using configurable AI providers. Role bindings live
in .taskmith/config.toml under the project root; API keys come from
the environment or a project .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				flags.root = wd
			}
			setupLogging(flags.verbose)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.root, "root", "", "project root (defaults to the working directory)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newParseCmd(flags))
	cmd.AddCommand(newModelsCmd(flags))
	return cmd
}

// setupLogging installs the default logger. Success-level records from
// the cascade render as SUCCESS rather than INFO+2.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: cascade.ReplaceLevelNames,
	})
	slog.SetDefault(slog.New(handler))
}
