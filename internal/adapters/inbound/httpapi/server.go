package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server is the local admin API the platform frontend talks to. Routes
// mirror the platform's app_config URLs so the existing UI works unchanged.
type Server struct {
	ws       application.Workspace
	settings *application.SettingsService
	sync     *application.SyncService
	rulesets *application.RulesetService
	center   *application.NotificationCenter
	origins  []string
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New creates a Server. corsOrigins defaults to the workspace config when
// empty.
func New(
	ws application.Workspace,
	settings *application.SettingsService,
	sync *application.SyncService,
	rulesets *application.RulesetService,
	center *application.NotificationCenter,
	corsOrigins []string,
) *Server {
	if len(corsOrigins) == 0 {
		corsOrigins = ws.Config.Server.CORSOrigins
	}
	s := &Server{
		ws:       ws,
		settings: settings,
		sync:     sync,
		rulesets: rulesets,
		center:   center,
		origins:  corsOrigins,
		log:      logging.Component("httpapi"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router assembles the route tree. The notification stream sits outside the
// timeout group so long-lived websockets are not cut off.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(timed chi.Router) {
		timed.Use(middleware.Timeout(requestTimeout))

		timed.Get("/healthz", s.handleHealthz)
		timed.Route("/api/app-config", func(ac chi.Router) {
			ac.Get("/get-config/", s.handleGetConfig)
			ac.Post("/update-config/", s.handleUpdateConfig)
			ac.Post("/test_integration/", s.handleTestIntegration)
			ac.Get("/check-vectorstores/", s.handleCheckVectorStores)
			ac.Post("/create-vectorstore/", s.handleCreateVectorStore)
		})
		timed.Get("/api/workspace/sync-status/", s.handleSyncStatus)
	})

	r.Get("/api/notifications/stream", s.handleNotificationStream)
	return r
}

// Start serves until ctx is cancelled, then drains within the shutdown
// grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.ws.Config.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("admin server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// checkOrigin admits the configured frontend origins plus same-host
// requests. Requests without an Origin header (curl, same-origin) pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
