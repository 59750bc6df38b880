package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskmith/taskmith/cascade"
	"github.com/taskmith/taskmith/config"
	"github.com/taskmith/taskmith/model"
	"github.com/taskmith/taskmith/prompt"
	"github.com/taskmith/taskmith/taskgen"
	"github.com/taskmith/taskmith/tasks"
)

func newParseCmd(flags *rootFlags) *cobra.Command {
	var (
		numTasks int
		appendTo bool
		research bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "parse <prd-file>",
		Short: "Generate a task list from a requirements document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(flags.root)
			if err != nil {
				return err
			}
			if numTasks <= 0 {
				numTasks = settings.Defaults.NumTasks
			}

			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			if output == "" {
				output = filepath.Join(flags.root, config.ConfigDirName, tasks.DefaultFileName)
			}
			store := tasks.NewStore(output)

			prices, err := loadPrices(flags.root)
			if err != nil {
				return err
			}

			prompts := prompt.NewEngine()
			if err := prompts.LoadOverrides(filepath.Join(flags.root, config.ConfigDirName)); err != nil {
				return err
			}

			orc := cascade.New(
				cascade.FileConfig{Root: flags.root},
				cascade.WithPrices(prices),
			)
			gen := taskgen.New(orc, store, taskgen.WithPrompts(prompts))

			result, err := gen.Generate(cmd.Context(), taskgen.Request{
				Document:        string(doc),
				NumTasks:        numTasks,
				Append:          appendTo,
				Research:        research,
				DefaultPriority: tasks.ParsePriority(settings.Defaults.Priority),
			})
			if result != nil {
				printSummary(cmd, result, orc.Tracker().Summary(), output)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&numTasks, "num-tasks", "n", 0, "number of tasks to generate (default from config)")
	cmd.Flags().BoolVar(&appendTo, "append", false, "keep existing tasks and number new ones after them")
	cmd.Flags().BoolVarP(&research, "research", "r", false, "start generation at the research role")
	cmd.Flags().StringVarP(&output, "output", "o", "", "task list file (default <root>/.taskmith/tasks.json)")
	return cmd
}

// loadPrices merges a project models.toml over the built-in price
// table when one exists.
func loadPrices(root string) (model.PriceTable, error) {
	path := filepath.Join(root, config.ConfigDirName, "models.toml")
	if _, err := os.Stat(path); err != nil {
		return model.DefaultPrices, nil
	}
	return model.LoadPriceTable(path)
}

func printSummary(cmd *cobra.Command, result *taskgen.Result, usage model.Summary, output string) {
	out := cmd.OutOrStdout()

	if result.Generated > 0 {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ Generated %d tasks", result.Generated)
		fmt.Fprintf(out, " → %s\n", output)
	}
	if result.DroppedDeps > 0 {
		fmt.Fprintf(out, "  dropped %d invalid dependency references\n", result.DroppedDeps)
	}
	if len(result.FailedGroups) > 0 {
		color.New(color.FgYellow).Fprintf(out, "⚠ %d group(s) failed: %s\n",
			len(result.FailedGroups), strings.Join(result.FailedGroups, ", "))
	}
	if usage.Requests > 0 {
		fmt.Fprintf(out, "  %d calls, %d tokens", usage.Requests, usage.TotalTokens)
		if usage.Cost > 0 {
			fmt.Fprintf(out, ", $%.4f", usage.Cost)
		}
		fmt.Fprintln(out)
	}
}
