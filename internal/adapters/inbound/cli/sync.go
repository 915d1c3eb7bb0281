package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/adapters/outbound/history"
	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/adapters/outbound/reqstore"
	"github.com/detectiq/workbench/internal/adapters/outbound/tui"
	"github.com/detectiq/workbench/internal/adapters/outbound/watch"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

// consoleNotifier renders notifications straight to the terminal. One-shot
// commands have no notification center to publish into.
type consoleNotifier struct {
	out io.Writer
}

func (c consoleNotifier) Publish(n domain.Notification) domain.Notification {
	if n.ID == "" {
		filled := domain.NewNotification(n.Severity, n.Title, n.Message)
		filled.Source = n.Source
		filled.AutoHide = n.AutoHide
		n = filled
	}
	fmt.Fprint(c.out, tui.RenderNotification(n))
	return n
}

func (c consoleNotifier) Dismiss(string, domain.CloseReason) bool { return false }

func newSyncCmd() *cobra.Command {
	var (
		checkOnly  bool
		ciMode     bool
		watchMode  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Regenerate requirements exports from pyproject.toml",
		Long:  "Render every requirements export from the Poetry manifest and lock, write the ones that drifted, and report per-file results. --check verifies without writing; --ci additionally fails on uncommitted export changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(cmd)
			if err != nil {
				return err
			}

			hist, err := history.Open(ws.HistoryPath())
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer hist.Close()

			svc := application.NewSyncService(
				pyproject.New(),
				reqstore.New(),
				gitinfo.New(),
				hist,
				consoleNotifier{out: cmd.ErrOrStderr()},
			)

			if watchMode {
				return runSyncWatch(cmd, svc, ws)
			}

			var report *domain.SyncReport
			switch {
			case checkOnly || ciMode:
				report, err = svc.Check(cmd.Context(), ws, ciMode)
			default:
				report, err = svc.Sync(cmd.Context(), ws)
			}

			if report != nil {
				if renderErr := renderSyncReport(cmd, report, jsonOutput); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Verify exports without writing")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI gate: verify and fail on uncommitted export changes")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Re-sync whenever pyproject.toml or poetry.lock changes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	return cmd
}

// runSyncWatch syncs once, then re-syncs on every settled manifest or lock
// change until the command is interrupted.
func runSyncWatch(cmd *cobra.Command, svc *application.SyncService, ws application.Workspace) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncOnce := func() {
		report, err := svc.Sync(ctx, ws)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderSyncReport(report))
		}
	}

	watcher, err := watch.New(
		[]string{ws.ManifestPath(), ws.LockPath()},
		watch.DefaultDebounce,
		func([]string) { syncOnce() },
	)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching pyproject.toml and poetry.lock (ctrl-c to stop)")
	syncOnce()

	<-ctx.Done()
	return nil
}

func renderSyncReport(cmd *cobra.Command, report *domain.SyncReport, jsonOutput bool) error {
	if jsonOutput {
		return renderJSON(cmd, report)
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderSyncReport(report))
	return nil
}
