package integrations

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/detectiq/workbench/internal/domain"
)

// Elastic probes an Elasticsearch deployment, either self-hosted via hostname
// or on Elastic Cloud via the deployment's cloud id.
type Elastic struct {
	cfg domain.ElasticSettings
}

// NewElastic builds the Elastic integration from settings.
func NewElastic(cfg domain.ElasticSettings) *Elastic {
	return &Elastic{cfg: cfg}
}

func (e *Elastic) Name() string { return "elastic" }

func (e *Elastic) enabled() bool { return e.cfg.Enabled }

// Configured reports the missing credential that blocks a probe.
func (e *Elastic) Configured() error {
	if e.cfg.Hostname == "" && e.cfg.CloudID == "" {
		return errors.New("elastic hostname or cloud_id is not configured")
	}
	if e.cfg.APIKey == "" {
		return errors.New("elastic api_key is not configured")
	}
	return nil
}

// TestConnection hits the cluster root with api-key auth and reads the
// version banner.
func (e *Elastic) TestConnection(ctx context.Context) (*domain.IntegrationTestResult, error) {
	endpoint, err := e.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("building elastic request: %w", err)
	}
	req.Header.Set("Authorization", "ApiKey "+e.cfg.APIKey)

	start := time.Now()
	resp, err := clientFor(e.cfg.VerifySSL).Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.New("elasticsearch rejected the api key")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elasticsearch returned status %d", resp.StatusCode)
	}

	var banner struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&banner); err != nil {
		return nil, fmt.Errorf("decoding elasticsearch banner: %w", err)
	}

	detail := "connected"
	if banner.Version.Number != "" {
		detail = fmt.Sprintf("Elasticsearch %s (%s)", banner.Version.Number, banner.ClusterName)
	}
	return &domain.IntegrationTestResult{
		Integration: e.Name(),
		Endpoint:    endpoint,
		LatencyMS:   time.Since(start).Milliseconds(),
		Detail:      detail,
	}, nil
}

// endpoint prefers an explicit hostname; otherwise it is derived from the
// cloud id.
func (e *Elastic) endpoint() (string, error) {
	if e.cfg.Hostname != "" {
		return baseURL(e.cfg.Hostname), nil
	}
	return cloudEndpoint(e.cfg.CloudID)
}

// cloudEndpoint decodes an Elastic Cloud id. The id is
// "deployment-name:base64(host$es-uuid$kibana-uuid)"; the Elasticsearch
// endpoint is https://<es-uuid>.<host>, keeping any port on the host part.
func cloudEndpoint(cloudID string) (string, error) {
	_, encoded, found := strings.Cut(cloudID, ":")
	if !found {
		return "", fmt.Errorf("malformed cloud_id %q", cloudID)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding cloud_id: %w", err)
	}
	parts := strings.Split(string(decoded), "$")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("malformed cloud_id %q", cloudID)
	}

	host, port, hasPort := strings.Cut(parts[0], ":")
	if hasPort {
		return fmt.Sprintf("https://%s.%s:%s", parts[1], host, port), nil
	}
	return fmt.Sprintf("https://%s.%s", parts[1], host), nil
}
