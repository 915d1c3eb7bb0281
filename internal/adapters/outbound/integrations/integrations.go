package integrations

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/detectiq/workbench/internal/domain"
)

const probeTimeout = 10 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	secureClient   *http.Client
	insecureClient *http.Client
)

func init() {
	secureClient = &http.Client{Timeout: probeTimeout}
	insecureClient = &http.Client{
		Timeout: probeTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// clientFor picks the shared probe client. verify_ssl=false gets the
// skip-verify transport for self-signed lab deployments.
func clientFor(verifySSL bool) *http.Client {
	if verifySSL {
		return secureClient
	}
	return insecureClient
}

// baseURL normalizes a configured hostname into a URL, defaulting to https.
func baseURL(hostname string) string {
	hostname = strings.TrimRight(hostname, "/")
	if !strings.Contains(hostname, "://") {
		return "https://" + hostname
	}
	return hostname
}

// Registry holds the supported SIEM integrations built from settings.
type Registry struct {
	byName map[string]domain.Integration
}

// NewRegistry builds the integration set from the configured credentials.
func NewRegistry(cfg domain.IntegrationSettings) *Registry {
	return &Registry{byName: map[string]domain.Integration{
		"splunk":        NewSplunk(cfg.Splunk),
		"elastic":       NewElastic(cfg.Elastic),
		"microsoft_xdr": NewMicrosoftXDR(cfg.MicrosoftXDR),
	}}
}

// For resolves an integration by its settings key.
func (r *Registry) For(name string) (domain.Integration, error) {
	integration, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown integration %q (expected %s)", name, strings.Join(domain.IntegrationNames, ", "))
	}
	return integration, nil
}

// All returns every integration in display order.
func (r *Registry) All() []domain.Integration {
	out := make([]domain.Integration, 0, len(domain.IntegrationNames))
	for _, name := range domain.IntegrationNames {
		out = append(out, r.byName[name])
	}
	return out
}

// Enabled returns the integrations switched on in settings.
func (r *Registry) Enabled() []domain.Integration {
	var out []domain.Integration
	for _, integration := range r.All() {
		if e, ok := integration.(interface{ enabled() bool }); ok && e.enabled() {
			out = append(out, integration)
		}
	}
	return out
}

// Outcome is one integration's probe result. Err carries connectivity or
// configuration failures; Result is set on success.
type Outcome struct {
	Integration string                        `json:"integration"`
	Result      *domain.IntegrationTestResult `json:"result,omitempty"`
	Err         error                         `json:"-"`
}

// TestAll probes every enabled integration concurrently. Each outcome carries
// its own error; the returned error reports the first failure so callers can
// gate exit codes on it.
func (r *Registry) TestAll(ctx context.Context) ([]Outcome, error) {
	enabled := r.Enabled()
	outcomes := make([]Outcome, len(enabled))

	var g errgroup.Group
	for i, integration := range enabled {
		g.Go(func() error {
			outcomes[i].Integration = integration.Name()
			if err := integration.Configured(); err != nil {
				outcomes[i].Err = err
				return fmt.Errorf("%s: %w", integration.Name(), err)
			}
			result, err := integration.TestConnection(ctx)
			if err != nil {
				outcomes[i].Err = err
				return fmt.Errorf("%s: %w", integration.Name(), err)
			}
			outcomes[i].Result = result
			return nil
		})
	}
	err := g.Wait()
	return outcomes, err
}
