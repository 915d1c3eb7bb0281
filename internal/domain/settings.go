package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/camelcase"
)

// Settings is the workbench's application configuration, matching the
// platform's settings.json layout field for field. Secrets (the OpenAI key and
// per-integration credentials) are loaded from the keyring and never persisted
// in the JSON file.
type Settings struct {
	OpenAIAPIKey string `json:"openai_api_key"`
	Model        string `json:"model"`
	LogLevel     string `json:"log_level"`

	RuleDirectories        map[RuleKind]string `json:"rule_directories"`
	VectorStoreDirectories map[RuleKind]string `json:"vector_store_directories"`

	Integrations IntegrationSettings `json:"integrations"`
}

// IntegrationSettings groups the supported SIEM integrations.
type IntegrationSettings struct {
	Splunk       SplunkSettings       `json:"splunk"`
	Elastic      ElasticSettings      `json:"elastic"`
	MicrosoftXDR MicrosoftXDRSettings `json:"microsoft_xdr"`
}

// SplunkSettings configures the Splunk integration.
type SplunkSettings struct {
	Hostname  string `json:"hostname"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	App       string `json:"app"`
	Owner     string `json:"owner"`
	VerifySSL bool   `json:"verify_ssl"`
	Enabled   bool   `json:"enabled"`
}

// ElasticSettings configures the Elasticsearch integration. CloudID is the
// Elastic Cloud deployment id; when set it supplies the endpoint instead of
// Hostname.
type ElasticSettings struct {
	Hostname  string `json:"hostname"`
	CloudID   string `json:"cloud_id"`
	APIKey    string `json:"api_key"`
	VerifySSL bool   `json:"verify_ssl"`
	Enabled   bool   `json:"enabled"`
}

// MicrosoftXDRSettings configures the Microsoft XDR integration.
type MicrosoftXDRSettings struct {
	Hostname     string `json:"hostname"`
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	VerifySSL    bool   `json:"verify_ssl"`
	Enabled      bool   `json:"enabled"`
}

// IntegrationNames lists the supported integrations in display order.
var IntegrationNames = []string{"splunk", "elastic", "microsoft_xdr"}

// DefaultModel is used when no model is configured anywhere.
const DefaultModel = "gpt-4o"

// DefaultLogLevel is used when no log level is configured anywhere.
const DefaultLogLevel = "INFO"

var validLogLevels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true, "CRITICAL": true,
}

// DefaultSettings builds the initial settings for a workspace rooted at root:
// gpt-4o, INFO logging, rule and vector-store directories under the workspace,
// all integrations disabled with TLS verification on.
func DefaultSettings(root string) Settings {
	ruleDirs := map[RuleKind]string{}
	storeDirs := map[RuleKind]string{}
	for _, kind := range RuleKinds() {
		ruleDirs[kind] = filepath.Join(root, "rules", string(kind))
		storeDirs[kind] = filepath.Join(root, "vector_stores", string(kind))
	}
	return Settings{
		Model:                  DefaultModel,
		LogLevel:               DefaultLogLevel,
		RuleDirectories:        ruleDirs,
		VectorStoreDirectories: storeDirs,
		Integrations: IntegrationSettings{
			Splunk:       SplunkSettings{VerifySSL: true},
			Elastic:      ElasticSettings{VerifySSL: true},
			MicrosoftXDR: MicrosoftXDRSettings{VerifySSL: true},
		},
	}
}

// Validate rejects settings the rest of the workbench cannot act on.
func (s *Settings) Validate() error {
	if !validLogLevels[strings.ToUpper(s.LogLevel)] {
		return fmt.Errorf("invalid log_level %q", s.LogLevel)
	}
	if s.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	return nil
}

// SecretRef names one sensitive field: an integration credential, or the
// global OpenAI key when Integration is empty.
type SecretRef struct {
	Integration string
	Field       string
}

// Keyring key: "openai_api_key" or "<integration>.<field>".
func (r SecretRef) Key() string {
	if r.Integration == "" {
		return r.Field
	}
	return r.Integration + "." + r.Field
}

// SecretRefs is the sensitive-field registry. It mirrors the platform's
// SENSITIVE_FIELDS map, so keyring entries written by either side line up.
func SecretRefs() []SecretRef {
	return []SecretRef{
		{Integration: "", Field: "openai_api_key"},
		{Integration: "splunk", Field: "password"},
		{Integration: "elastic", Field: "api_key"},
		{Integration: "microsoft_xdr", Field: "client_secret"},
	}
}

// Secret reads the value behind a secret ref.
func (s *Settings) Secret(ref SecretRef) string {
	switch ref.Key() {
	case "openai_api_key":
		return s.OpenAIAPIKey
	case "splunk.password":
		return s.Integrations.Splunk.Password
	case "elastic.api_key":
		return s.Integrations.Elastic.APIKey
	case "microsoft_xdr.client_secret":
		return s.Integrations.MicrosoftXDR.ClientSecret
	}
	return ""
}

// SetSecret writes the value behind a secret ref.
func (s *Settings) SetSecret(ref SecretRef, value string) {
	switch ref.Key() {
	case "openai_api_key":
		s.OpenAIAPIKey = value
	case "splunk.password":
		s.Integrations.Splunk.Password = value
	case "elastic.api_key":
		s.Integrations.Elastic.APIKey = value
	case "microsoft_xdr.client_secret":
		s.Integrations.MicrosoftXDR.ClientSecret = value
	}
}

// WithoutSecrets returns a copy with every sensitive field blanked. This is
// what the settings file stores.
func (s Settings) WithoutSecrets() Settings {
	out := s.clone()
	for _, ref := range SecretRefs() {
		out.SetSecret(ref, "")
	}
	return out
}

// Redacted returns a copy safe for display and API responses: set secrets
// become "***", unset ones stay empty.
func (s Settings) Redacted() Settings {
	out := s.clone()
	for _, ref := range SecretRefs() {
		if out.Secret(ref) != "" {
			out.SetSecret(ref, "***")
		}
	}
	return out
}

func (s Settings) clone() Settings {
	out := s
	out.RuleDirectories = map[RuleKind]string{}
	for k, v := range s.RuleDirectories {
		out.RuleDirectories[k] = v
	}
	out.VectorStoreDirectories = map[RuleKind]string{}
	for k, v := range s.VectorStoreDirectories {
		out.VectorStoreDirectories[k] = v
	}
	return out
}

// EnvLookup resolves an environment variable, os.LookupEnv shaped.
type EnvLookup func(string) (string, bool)

// EnvBinding ties one environment variable to the settings field it overrides.
type EnvBinding struct {
	Key    string
	Secret bool
	apply  func(*Settings, string) error
}

// Apply writes the value into its settings field.
func (b EnvBinding) Apply(s *Settings, value string) error { return b.apply(s, value) }

// EnvKey derives the canonical environment variable for a settings field from
// its Go name: EnvKey("microsoft_xdr", "ClientSecret") is
// "DETECTIQ_MICROSOFT_XDR_CLIENT_SECRET".
func EnvKey(integration, goField string) string {
	words := camelcase.Split(goField)
	for i, w := range words {
		words[i] = strings.ToUpper(w)
	}
	key := "DETECTIQ_"
	if integration != "" {
		key += strings.ToUpper(integration) + "_"
	}
	return key + strings.Join(words, "_")
}

func stringBinding(key string, secret bool, set func(*Settings, string)) EnvBinding {
	return EnvBinding{Key: key, Secret: secret, apply: func(s *Settings, v string) error {
		set(s, v)
		return nil
	}}
}

func boolBinding(key string, set func(*Settings, bool)) EnvBinding {
	return EnvBinding{Key: key, apply: func(s *Settings, v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", key, v)
		}
		set(s, parsed)
		return nil
	}}
}

// EnvBindings enumerates every environment override the workbench honors.
// OPENAI_API_KEY keeps its historical unprefixed name; everything else is
// derived from the field registry.
func EnvBindings() []EnvBinding {
	return []EnvBinding{
		stringBinding("OPENAI_API_KEY", true, func(s *Settings, v string) { s.OpenAIAPIKey = v }),
		stringBinding(EnvKey("", "Model"), false, func(s *Settings, v string) { s.Model = v }),
		stringBinding(EnvKey("", "LogLevel"), false, func(s *Settings, v string) { s.LogLevel = v }),

		stringBinding(EnvKey("splunk", "Hostname"), false, func(s *Settings, v string) { s.Integrations.Splunk.Hostname = v }),
		stringBinding(EnvKey("splunk", "Username"), false, func(s *Settings, v string) { s.Integrations.Splunk.Username = v }),
		stringBinding(EnvKey("splunk", "Password"), true, func(s *Settings, v string) { s.Integrations.Splunk.Password = v }),
		stringBinding(EnvKey("splunk", "App"), false, func(s *Settings, v string) { s.Integrations.Splunk.App = v }),
		stringBinding(EnvKey("splunk", "Owner"), false, func(s *Settings, v string) { s.Integrations.Splunk.Owner = v }),
		boolBinding(EnvKey("splunk", "VerifySSL"), func(s *Settings, v bool) { s.Integrations.Splunk.VerifySSL = v }),
		boolBinding(EnvKey("splunk", "Enabled"), func(s *Settings, v bool) { s.Integrations.Splunk.Enabled = v }),

		stringBinding(EnvKey("elastic", "Hostname"), false, func(s *Settings, v string) { s.Integrations.Elastic.Hostname = v }),
		stringBinding(EnvKey("elastic", "CloudID"), false, func(s *Settings, v string) { s.Integrations.Elastic.CloudID = v }),
		stringBinding(EnvKey("elastic", "APIKey"), true, func(s *Settings, v string) { s.Integrations.Elastic.APIKey = v }),
		boolBinding(EnvKey("elastic", "VerifySSL"), func(s *Settings, v bool) { s.Integrations.Elastic.VerifySSL = v }),
		boolBinding(EnvKey("elastic", "Enabled"), func(s *Settings, v bool) { s.Integrations.Elastic.Enabled = v }),

		stringBinding(EnvKey("microsoft_xdr", "Hostname"), false, func(s *Settings, v string) { s.Integrations.MicrosoftXDR.Hostname = v }),
		stringBinding(EnvKey("microsoft_xdr", "TenantID"), false, func(s *Settings, v string) { s.Integrations.MicrosoftXDR.TenantID = v }),
		stringBinding(EnvKey("microsoft_xdr", "ClientID"), false, func(s *Settings, v string) { s.Integrations.MicrosoftXDR.ClientID = v }),
		stringBinding(EnvKey("microsoft_xdr", "ClientSecret"), true, func(s *Settings, v string) { s.Integrations.MicrosoftXDR.ClientSecret = v }),
		boolBinding(EnvKey("microsoft_xdr", "VerifySSL"), func(s *Settings, v bool) { s.Integrations.MicrosoftXDR.VerifySSL = v }),
		boolBinding(EnvKey("microsoft_xdr", "Enabled"), func(s *Settings, v bool) { s.Integrations.MicrosoftXDR.Enabled = v }),
	}
}

// ApplyEnv overlays environment values onto the settings.
func (s *Settings) ApplyEnv(lookup EnvLookup) error {
	for _, b := range EnvBindings() {
		if v, ok := lookup(b.Key); ok && v != "" {
			if err := b.Apply(s, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply merges a partial update in the admin API's shape. Unknown keys and
// unknown integrations are rejected so typos fail loudly instead of being
// silently dropped.
func (s *Settings) Apply(patch map[string]any) error {
	for key, raw := range patch {
		switch key {
		case "openai_api_key":
			if err := setString(&s.OpenAIAPIKey, key, raw); err != nil {
				return err
			}
		case "model":
			if err := setString(&s.Model, key, raw); err != nil {
				return err
			}
		case "log_level":
			var level string
			if err := setString(&level, key, raw); err != nil {
				return err
			}
			if !validLogLevels[strings.ToUpper(level)] {
				return fmt.Errorf("invalid log_level %q", level)
			}
			s.LogLevel = strings.ToUpper(level)
		case "rule_directories":
			if err := applyDirMap(s.RuleDirectories, key, raw); err != nil {
				return err
			}
		case "vector_store_directories":
			if err := applyDirMap(s.VectorStoreDirectories, key, raw); err != nil {
				return err
			}
		case "integrations":
			byName, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("integrations must be an object")
			}
			for name, sub := range byName {
				fields, ok := sub.(map[string]any)
				if !ok {
					return fmt.Errorf("integration %q must be an object", name)
				}
				if err := s.applyIntegration(name, fields); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown settings key %q", key)
		}
	}
	return nil
}

func (s *Settings) applyIntegration(name string, fields map[string]any) error {
	switch name {
	case "splunk":
		c := &s.Integrations.Splunk
		for k, v := range fields {
			var err error
			switch k {
			case "hostname":
				err = setString(&c.Hostname, k, v)
			case "username":
				err = setString(&c.Username, k, v)
			case "password":
				err = setString(&c.Password, k, v)
			case "app":
				err = setString(&c.App, k, v)
			case "owner":
				err = setString(&c.Owner, k, v)
			case "verify_ssl":
				err = setBool(&c.VerifySSL, k, v)
			case "enabled":
				err = setBool(&c.Enabled, k, v)
			default:
				err = fmt.Errorf("unknown splunk field %q", k)
			}
			if err != nil {
				return err
			}
		}
	case "elastic":
		c := &s.Integrations.Elastic
		for k, v := range fields {
			var err error
			switch k {
			case "hostname":
				err = setString(&c.Hostname, k, v)
			case "cloud_id":
				err = setString(&c.CloudID, k, v)
			case "api_key":
				err = setString(&c.APIKey, k, v)
			case "verify_ssl":
				err = setBool(&c.VerifySSL, k, v)
			case "enabled":
				err = setBool(&c.Enabled, k, v)
			default:
				err = fmt.Errorf("unknown elastic field %q", k)
			}
			if err != nil {
				return err
			}
		}
	case "microsoft_xdr":
		c := &s.Integrations.MicrosoftXDR
		for k, v := range fields {
			var err error
			switch k {
			case "hostname":
				err = setString(&c.Hostname, k, v)
			case "tenant_id":
				err = setString(&c.TenantID, k, v)
			case "client_id":
				err = setString(&c.ClientID, k, v)
			case "client_secret":
				err = setString(&c.ClientSecret, k, v)
			case "verify_ssl":
				err = setBool(&c.VerifySSL, k, v)
			case "enabled":
				err = setBool(&c.Enabled, k, v)
			default:
				err = fmt.Errorf("unknown microsoft_xdr field %q", k)
			}
			if err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown integration %q", name)
	}
	return nil
}

func applyDirMap(dst map[RuleKind]string, key string, raw any) error {
	byKind, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%s must be an object", key)
	}
	for k, v := range byKind {
		kind, err := ParseRuleKind(k)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		var dir string
		if err := setString(&dir, k, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		dst[kind] = dir
	}
	return nil
}

func setString(dst *string, key string, raw any) error {
	v, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", key)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string, raw any) error {
	v, ok := raw.(bool)
	if !ok {
		return fmt.Errorf("%s must be a boolean", key)
	}
	*dst = v
	return nil
}
