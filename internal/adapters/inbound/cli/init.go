package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/config"
	"github.com/detectiq/workbench/internal/adapters/outbound/history"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

func newInitCmd() *cobra.Command {
	var (
		project string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Scaffold a DetectIQ workspace",
		Long:  "Write the workspace starter files: .detectiq.yaml, the VS Code launch config, .env.example and the requirements-sync CI workflow. Existing files are kept unless --force is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			name := project
			if name == "" {
				name = filepath.Base(absPath)
			}

			cfg := domain.DefaultWorkspaceConfig(name)

			hist, err := history.Open(cfg.HistoryPath(absPath))
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer hist.Close()

			svc := application.NewScaffoldService(config.New(), hist)
			actions, err := svc.Init(cmd.Context(), absPath, cfg, force)
			if err != nil {
				return err
			}

			for _, action := range actions {
				if action.Written {
					fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", action.Path)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Kept %s (use --force to overwrite)\n", action.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name (defaults to the directory name)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing scaffold files")

	return cmd
}
