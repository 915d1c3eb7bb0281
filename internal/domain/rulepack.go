package domain

import (
	"fmt"
	"time"
)

// RuleKind is a detection-rule family the platform manages. The values are
// the exact keys used by the settings directories and the rule-type fields of
// the admin API.
type RuleKind string

const (
	RuleSigma RuleKind = "sigma"
	RuleYara  RuleKind = "yara"
	RuleSnort RuleKind = "snort"
)

// RuleKinds lists the supported kinds in canonical order.
func RuleKinds() []RuleKind {
	return []RuleKind{RuleSigma, RuleYara, RuleSnort}
}

// ParseRuleKind validates a rule-type string from config or API input.
func ParseRuleKind(s string) (RuleKind, error) {
	switch RuleKind(s) {
	case RuleSigma, RuleYara, RuleSnort:
		return RuleKind(s), nil
	}
	return "", fmt.Errorf("unknown rule type %q (expected sigma, yara or snort)", s)
}

// SigmaHeader is the slice of a Sigma rule the scanner reads. A YAML document
// that does not decode into this shape counts as invalid.
type SigmaHeader struct {
	Title     string `yaml:"title"`
	ID        string `yaml:"id"`
	Status    string `yaml:"status"`
	Level     string `yaml:"level"`
	Logsource struct {
		Product  string `yaml:"product"`
		Category string `yaml:"category"`
		Service  string `yaml:"service"`
	} `yaml:"logsource"`
}

// RulesetReport summarizes one rule directory scan. Invalid counts files that
// look like rules but failed to parse; Missing marks a configured directory
// that does not exist.
type RulesetReport struct {
	Kind    RuleKind `json:"kind"`
	Path    string   `json:"path"`
	Files   int      `json:"files"`
	Rules   int      `json:"rules"`
	Invalid int      `json:"invalid"`
	Missing bool     `json:"missing,omitempty"`
}

// VectorStoreStatus describes one rule kind's vector store directory.
type VectorStoreStatus string

const (
	// StoreReady means the FAISS artifacts (index.faiss, index.pkl) exist.
	StoreReady VectorStoreStatus = "ready"
	// StorePending means the directory was scaffolded but not yet indexed.
	StorePending VectorStoreStatus = "pending"
	// StoreMissing means the directory does not exist.
	StoreMissing VectorStoreStatus = "missing"
)

// VectorStoreReport is the store status for one rule kind.
type VectorStoreReport struct {
	Kind   RuleKind          `json:"kind"`
	Path   string            `json:"path"`
	Status VectorStoreStatus `json:"status"`
}

// StoreStamp is the store.json marker written when a vector store is
// scaffolded. The platform's indexer picks pending stores up from here.
type StoreStamp struct {
	RuleType    string    `json:"rule_type"`
	RequestedAt time.Time `json:"requested_at"`
	Status      string    `json:"status"`
}
