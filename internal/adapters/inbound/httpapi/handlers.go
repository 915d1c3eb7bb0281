package httpapi

import (
	"net/http"

	"github.com/detectiq/workbench/internal/adapters/outbound/integrations"
	"github.com/detectiq/workbench/internal/domain"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.settings.Load(s.ws)
	if err != nil {
		s.log.WithError(err).Error("loading settings")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cfg.Redacted())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.settings.Update(s.ws, changes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("settings updated")
	respondJSON(w, http.StatusOK, updated.Redacted())
}

func (s *Server) handleTestIntegration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Integration string `json:"integration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Integration == "" {
		respondError(w, http.StatusBadRequest, "body must be {\"integration\": \"<name>\"}")
		return
	}

	cfg, err := s.settings.Load(s.ws)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	client, err := integrations.NewRegistry(cfg.Integrations).For(body.Integration)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := client.Configured(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := client.TestConnection(r.Context())
	if err != nil {
		s.log.WithError(err).WithField("integration", body.Integration).Warn("integration probe failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckVectorStores(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.settings.Load(s.ws)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stores, err := s.rulesets.StoreStatuses(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stores)
}

func (s *Server) handleCreateVectorStore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RuleType string `json:"rule_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "body must be {\"rule_type\": \"<kind>\"}")
		return
	}
	kind, err := domain.ParseRuleKind(body.RuleType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := s.settings.Load(s.ws)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := s.rulesets.CreateStore(cfg, kind)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	report, err := s.sync.Plan(s.ws)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
