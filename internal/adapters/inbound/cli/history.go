package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/history"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent workbench runs",
		Long:  "List the most recent runs recorded in the workspace history database: sync, check, CI, init and serve.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			store, err := history.Open(ws.HistoryPath())
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}

			if jsonOutput {
				return renderJSON(cmd, runs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output history as JSON")
	return cmd
}
