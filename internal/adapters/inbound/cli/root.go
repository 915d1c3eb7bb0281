package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/config"
	"github.com/detectiq/workbench/internal/adapters/outbound/secrets"
	"github.com/detectiq/workbench/internal/adapters/outbound/settingsstore"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var (
		debug   bool
		quiet   bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:           "detectiq",
		Short:         "Manage a DetectIQ detection-engineering workspace",
		Long:          "DetectIQ workbench keeps a Poetry-managed workspace honest. It regenerates requirements exports from pyproject.toml, gates CI on drift, holds settings and secrets in one place, and inspects rule packs and SIEM connections.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.Options{
				Debug:   debug,
				Quiet:   quiet,
				NoColor: noColor,
				Output:  cmd.ErrOrStderr(),
			})
			if noColor {
				tui.DisableColors()
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Only log errors")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("path", ".", "Workspace root")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newVectorstoresCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newHistoryCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		// Usage and cobra's own printing are silenced, so this is the one
		// place failures reach the operator.
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// resolveWorkspace loads the workspace config for the --path flag value. A
// missing .detectiq.yaml yields the defaults, so every command works in an
// uninitialized directory.
func resolveWorkspace(cmd *cobra.Command) (application.Workspace, error) {
	path, err := cmd.Flags().GetString("path")
	if err != nil {
		return application.Workspace{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return application.Workspace{}, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.New().Load(abs)
	if err != nil {
		return application.Workspace{}, err
	}
	return application.NewWorkspace(abs, cfg)
}

// newSettingsService wires the settings pipeline against the OS keyring.
func newSettingsService() *application.SettingsService {
	return application.NewSettingsService(settingsstore.New(), secrets.NewKeyring(), nil)
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
