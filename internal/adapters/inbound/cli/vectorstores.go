package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

func newVectorstoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectorstores",
		Short: "Inspect and scaffold rule vector stores",
	}
	cmd.AddCommand(newVectorstoresCheckCmd())
	cmd.AddCommand(newVectorstoresCreateCmd())
	return cmd
}

func newVectorstoresCheckCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report the state of each rule type's vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			cfg, err := newSettingsService().Load(ws)
			if err != nil {
				return err
			}

			svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())
			stores, err := svc.StoreStatuses(cfg)
			if err != nil {
				return err
			}

			if jsonOutput {
				return renderJSON(cmd, stores)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderVectorStores(stores))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newVectorstoresCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <rule-type>",
		Short: "Scaffold the vector store directory for a rule type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseRuleKind(args[0])
			if err != nil {
				return err
			}

			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			cfg, err := newSettingsService().Load(ws)
			if err != nil {
				return err
			}

			svc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())
			report, err := svc.CreateStore(cfg, kind)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Scaffolded %s vector store at %s\n", report.Kind, report.Path)
			return nil
		},
	}
	return cmd
}
