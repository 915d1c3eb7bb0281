package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/adapters/outbound/reqstore"
	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
	"github.com/detectiq/workbench/internal/application"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workspace overview",
		Long:  "One look at the workspace: project, model, sync state, git head, rule packs and vector stores.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			syncSvc := application.NewSyncService(pyproject.New(), reqstore.New(), gitinfo.New(), nil, nil)
			rulesetSvc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())
			svc := application.NewStatusService(syncSvc, newSettingsService(), rulesetSvc, gitinfo.New())

			status, err := svc.Status(cmd.Context(), ws)
			if err != nil {
				return fmt.Errorf("collecting status: %w", err)
			}

			if jsonOutput {
				return renderJSON(cmd, status)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderStatus(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}
