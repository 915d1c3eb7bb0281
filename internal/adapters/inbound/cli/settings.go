package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/integrations"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change workbench settings",
		Long:  "Settings live in .detectiq/settings.json with secrets in the OS keyring. Environment variables fill gaps the file leaves open.",
	}
	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())
	cmd.AddCommand(newSettingsTestIntegrationCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			cfg, err := newSettingsService().Load(ws)
			if err != nil {
				return err
			}

			if jsonOutput {
				return renderJSON(cmd, cfg.Redacted())
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderSettings(cfg.Redacted()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output settings as JSON")
	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Change settings values",
		Long:  "Apply one or more key=value changes and persist them. Nested keys use dots, e.g. integrations.splunk.hostname=splunk.local or rule_directories.sigma=~/rules/sigma. Secret values go to the OS keyring, never to disk.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			changes, err := parseAssignments(args)
			if err != nil {
				return err
			}

			if _, err := newSettingsService().Update(ws, changes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d setting(s)\n", len(args))
			return nil
		},
	}
	return cmd
}

func newSettingsTestIntegrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-integration [name]",
		Short: "Probe a SIEM connection",
		Long:  "Test connectivity for one integration, or for every enabled one when no name is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			cfg, err := newSettingsService().Load(ws)
			if err != nil {
				return err
			}
			registry := integrations.NewRegistry(cfg.Integrations)

			if len(args) == 1 {
				name := args[0]
				integration, err := registry.For(name)
				if err != nil {
					return err
				}
				if err := integration.Configured(); err != nil {
					return err
				}
				result, err := integration.TestConnection(cmd.Context())
				if err != nil {
					fmt.Fprint(cmd.OutOrStdout(), tui.RenderIntegrationFailure(name, err))
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderIntegrationResult(result))
				return nil
			}

			outcomes, err := registry.TestAll(cmd.Context())
			if len(outcomes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No integrations enabled")
				return nil
			}
			for _, outcome := range outcomes {
				if outcome.Err != nil {
					fmt.Fprint(cmd.OutOrStdout(), tui.RenderIntegrationFailure(outcome.Integration, outcome.Err))
					continue
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderIntegrationResult(outcome.Result))
			}
			return err
		},
	}
	return cmd
}

// parseAssignments turns dotted key=value pairs into the nested change set
// settings updates expect.
func parseAssignments(args []string) (map[string]any, error) {
	changes := map[string]any{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}

		node := changes
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = coerceValue(value)
	}
	return changes, nil
}

// coerceValue maps CLI strings onto the JSON types settings carry.
func coerceValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
