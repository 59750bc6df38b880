package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskmith/taskmith/config"
	"github.com/taskmith/taskmith/provider"
)

func newModelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Show role bindings and available providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(flags.root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)

			bold.Fprintln(out, "Roles")
			for _, role := range []config.Role{config.RoleMain, config.RoleFallback, config.RoleResearch} {
				resolved, err := settings.Resolve(role)
				if err != nil {
					fmt.Fprintf(out, "  %-9s (not configured)\n", role)
					continue
				}
				line := fmt.Sprintf("  %-9s %s / %s", role, resolved.ProviderID, resolved.ModelID)
				if provider.RequiresAPIKey(resolved.ProviderID) {
					if _, ok := config.APIKey(resolved.ProviderID, nil, flags.root); !ok {
						line += color.YellowString("  (no API key)")
					}
				}
				fmt.Fprintln(out, line)
			}

			bold.Fprintln(out, "\nProviders")
			for _, name := range provider.Available() {
				d, _ := provider.Lookup(name)
				cred := "credential-free"
				if d.RequiresAPIKey {
					cred = "requires API key"
				}
				fmt.Fprintf(out, "  %-12s %s\n", name, cred)
			}
			return nil
		},
	}
}
