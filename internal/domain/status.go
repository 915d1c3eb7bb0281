package domain

// WorkspaceStatus is the one-shot overview served by the status command and
// the admin API: workspace identity, manifest sync state and platform asset
// health.
type WorkspaceStatus struct {
	Project             string               `json:"project"`
	Root                string               `json:"root"`
	GitHead             string               `json:"git_head,omitempty"`
	DirtyExports        []string             `json:"dirty_exports,omitempty"`
	Sync                *SyncReport          `json:"sync,omitempty"`
	SyncError           string               `json:"sync_error,omitempty"`
	Rulesets            []*RulesetReport     `json:"rulesets,omitempty"`
	VectorStores        []*VectorStoreReport `json:"vector_stores,omitempty"`
	EnabledIntegrations []string             `json:"enabled_integrations"`
	Model               string               `json:"model"`
}
