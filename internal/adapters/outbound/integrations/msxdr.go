package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/detectiq/workbench/internal/domain"
)

// DefaultLoginBase is the Microsoft identity platform endpoint.
const DefaultLoginBase = "https://login.microsoftonline.com"

const graphScope = "https://graph.microsoft.com/.default"

// MicrosoftXDR probes the Microsoft identity platform with the configured app
// registration. A token grant proves tenant, client id and secret line up.
type MicrosoftXDR struct {
	cfg domain.MicrosoftXDRSettings

	// LoginBase is swappable for tests.
	LoginBase string
}

// NewMicrosoftXDR builds the Microsoft XDR integration from settings.
func NewMicrosoftXDR(cfg domain.MicrosoftXDRSettings) *MicrosoftXDR {
	return &MicrosoftXDR{cfg: cfg, LoginBase: DefaultLoginBase}
}

func (m *MicrosoftXDR) Name() string { return "microsoft_xdr" }

func (m *MicrosoftXDR) enabled() bool { return m.cfg.Enabled }

// Configured reports the missing credential that blocks a probe.
func (m *MicrosoftXDR) Configured() error {
	switch {
	case m.cfg.TenantID == "":
		return errors.New("microsoft_xdr tenant_id is not configured")
	case m.cfg.ClientID == "":
		return errors.New("microsoft_xdr client_id is not configured")
	case m.cfg.ClientSecret == "":
		return errors.New("microsoft_xdr client_secret is not configured")
	}
	return nil
}

// TestConnection requests a client-credentials token for the Graph scope.
func (m *MicrosoftXDR) TestConnection(ctx context.Context) (*domain.IntegrationTestResult, error) {
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(m.LoginBase, "/"), m.cfg.TenantID)

	form := url.Values{
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := clientFor(m.cfg.VerifySSL).Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to microsoft identity platform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr == nil && failure.Error != "" {
			return nil, fmt.Errorf("token request failed: %s", failure.Error)
		}
		return nil, fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response carried no access token")
	}

	return &domain.IntegrationTestResult{
		Integration: m.Name(),
		Endpoint:    endpoint,
		LatencyMS:   time.Since(start).Milliseconds(),
		Detail:      fmt.Sprintf("token issued, expires in %ds", token.ExpiresIn),
	}, nil
}
