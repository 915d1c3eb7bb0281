package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/detectiq/workbench/internal/adapters/inbound/httpapi"
	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/adapters/outbound/history"
	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/adapters/outbound/reqstore"
	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
	"github.com/detectiq/workbench/internal/logging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local admin API server",
		Long:  "Serve the admin API the platform frontend talks to: settings, integration probes, vector store checks, sync status and the notification stream. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A .env in the workspace mirrors how the platform backend is
			// configured; missing files are fine.
			_ = godotenv.Load()

			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hist, err := history.Open(ws.HistoryPath())
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer hist.Close()

			center := application.NewNotificationCenter(logging.Component("notifications"))
			defer center.Close()

			syncSvc := application.NewSyncService(
				pyproject.New(),
				reqstore.New(),
				gitinfo.New(),
				hist,
				center,
			)
			rulesetSvc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())

			log := logging.Component("serve")
			run := domain.Run{
				ID:        domain.NewRunID(),
				Command:   "serve",
				Status:    domain.RunRunning,
				StartedAt: time.Now().UTC(),
			}
			if err := hist.RecordRun(ctx, run); err != nil {
				log.WithError(err).Warn("recording run")
			}

			srv := httpapi.New(
				ws,
				newSettingsService(),
				syncSvc,
				rulesetSvc,
				center,
				viper.GetStringSlice("server.cors_origins"),
			)
			err = srv.Start(ctx, viper.GetString("server.addr"))

			status, detail := domain.RunOK, "server stopped"
			if err != nil {
				status, detail = domain.RunFailed, err.Error()
			}
			// The signal context is already cancelled once Start returns.
			if ferr := hist.FinishRun(context.Background(), run.ID, status, detail, time.Now().UTC()); ferr != nil {
				log.WithError(ferr).Warn("finishing run")
			}
			return err
		},
	}

	viper.SetEnvPrefix("DETECTIQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cmd.Flags().String("addr", "", "Listen address (DETECTIQ_SERVER_ADDR also sets this; defaults to the workspace config)")
	cmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins (defaults to the workspace config)")
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.cors_origins", cmd.Flags().Lookup("cors-origin"))
	return cmd
}
