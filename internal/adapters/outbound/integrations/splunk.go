package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/detectiq/workbench/internal/domain"
)

// Splunk probes a Splunk deployment through its management API.
type Splunk struct {
	cfg domain.SplunkSettings
}

// NewSplunk builds the Splunk integration from settings.
func NewSplunk(cfg domain.SplunkSettings) *Splunk {
	return &Splunk{cfg: cfg}
}

func (s *Splunk) Name() string { return "splunk" }

func (s *Splunk) enabled() bool { return s.cfg.Enabled }

// Configured reports the missing credential that blocks a probe.
func (s *Splunk) Configured() error {
	switch {
	case s.cfg.Hostname == "":
		return errors.New("splunk hostname is not configured")
	case s.cfg.Username == "":
		return errors.New("splunk username is not configured")
	case s.cfg.Password == "":
		return errors.New("splunk password is not configured")
	}
	return nil
}

// TestConnection asks the management API for server info with basic auth.
func (s *Splunk) TestConnection(ctx context.Context) (*domain.IntegrationTestResult, error) {
	endpoint := baseURL(s.cfg.Hostname) + "/services/server/info"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?output_mode=json", nil)
	if err != nil {
		return nil, fmt.Errorf("building splunk request: %w", err)
	}
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)

	start := time.Now()
	resp, err := clientFor(s.cfg.VerifySSL).Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to splunk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.New("splunk rejected the credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("splunk returned status %d", resp.StatusCode)
	}

	var info struct {
		Entry []struct {
			Content struct {
				Version    string `json:"version"`
				ServerName string `json:"serverName"`
			} `json:"content"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding splunk server info: %w", err)
	}

	detail := "connected"
	if len(info.Entry) > 0 && info.Entry[0].Content.Version != "" {
		detail = fmt.Sprintf("Splunk %s on %s", info.Entry[0].Content.Version, info.Entry[0].Content.ServerName)
	}
	return &domain.IntegrationTestResult{
		Integration: s.Name(),
		Endpoint:    endpoint,
		LatencyMS:   time.Since(start).Milliseconds(),
		Detail:      detail,
	}, nil
}
