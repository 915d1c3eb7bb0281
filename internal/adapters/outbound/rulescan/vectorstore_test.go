package rulescan_test

import (
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/domain"
)

func TestStoreStatus_Missing(t *testing.T) {
	report, err := rulescan.NewStores().Status(domain.RuleSigma, filepath.Join(t.TempDir(), "vectorstore"))
	require.NoError(t, err)
	assert.Equal(t, domain.StoreMissing, report.Status)
}

func TestStoreStatus_PendingAndReady(t *testing.T) {
	dir := t.TempDir()
	stores := rulescan.NewStores()

	report, err := stores.Status(domain.RuleYara, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.StorePending, report.Status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.faiss"), []byte("faiss"), 0o644))
	report, err = stores.Status(domain.RuleYara, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.StorePending, report.Status, "one artifact alone is not a usable store")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.pkl"), []byte("pickle"), 0o644))
	report, err = stores.Status(domain.RuleYara, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreReady, report.Status)
}

func TestStoreCreate_WritesStamp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snort")

	report, err := rulescan.NewStores().Create(domain.RuleSnort, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.StorePending, report.Status)

	data, err := os.ReadFile(filepath.Join(dir, "store.json"))
	require.NoError(t, err)

	var stamp domain.StoreStamp
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &stamp))
	assert.Equal(t, "snort", stamp.RuleType)
	assert.Equal(t, "pending", stamp.Status)
	assert.False(t, stamp.RequestedAt.IsZero())
}

func TestStoreCreate_LeavesReadyStoreAlone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.faiss"), []byte("faiss"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.pkl"), []byte("pickle"), 0o644))

	report, err := rulescan.NewStores().Create(domain.RuleSigma, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreReady, report.Status)

	_, err = os.Stat(filepath.Join(dir, "store.json"))
	assert.True(t, os.IsNotExist(err), "ready stores must not be re-stamped")
}
