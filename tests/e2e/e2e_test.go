package e2e_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/domain"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary before running tests
	dir, err := os.MkdirTemp("", "detectiq-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	binaryPath = filepath.Join(dir, "detectiq")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/detectiq")
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

const e2eManifest = `[tool.poetry]
name = "detectiq"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31.0"
`

const e2eLock = `[[package]]
name = "certifi"
version = "2023.11.17"
optional = false
python-versions = ">=3.6"

[[package]]
name = "requests"
version = "2.31.0"
optional = false
python-versions = ">=3.7"

[package.dependencies]
certifi = ">=2017.4.17"

[metadata]
lock-version = "2.0"
content-hash = "0a1b2c3d"
`

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(e2eManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poetry.lock"), []byte(e2eLock), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"OPENAI_API_KEY=",
		"DETECTIQ_SPLUNK_PASSWORD=",
		"DETECTIQ_ELASTIC_API_KEY=",
		"DETECTIQ_MICROSOFT_XDR_CLIENT_SECRET=",
	)
	out, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

func TestE2E_Version(t *testing.T) {
	out, code := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "detectiq dev (none)")
}

func TestE2E_InitScaffoldsWorkspace(t *testing.T) {
	dir := t.TempDir()

	out, code := run(t, "init", dir, "--project", "detectiq")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, ".detectiq.yaml")

	assert.FileExists(t, filepath.Join(dir, ".detectiq.yaml"))
	assert.FileExists(t, filepath.Join(dir, ".vscode", "launch.json"))
	assert.FileExists(t, filepath.Join(dir, ".github", "workflows", "requirements-sync.yml"))
}

func TestE2E_SyncWritesExports(t *testing.T) {
	dir := writeWorkspace(t)

	out, code := run(t, "sync", "--path", dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "requirements.txt")

	data, err := os.ReadFile(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "requests==2.31.0")
	assert.Contains(t, string(data), "certifi==2023.11.17")
}

func TestE2E_CheckGateFailsOnDrift(t *testing.T) {
	dir := writeWorkspace(t)

	_, code := run(t, "sync", "--path", dir)
	require.Equal(t, 0, code)

	path := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("requests==9.9.9\n"), 0o644))

	out, code := run(t, "sync", "--check", "--path", dir)
	assert.Equal(t, 1, code, "gate should exit 1 on drift")
	assert.Contains(t, out, "out of sync")
}

func TestE2E_CheckGatePassesWhenClean(t *testing.T) {
	dir := writeWorkspace(t)

	_, code := run(t, "sync", "--path", dir)
	require.Equal(t, 0, code)

	_, code = run(t, "sync", "--check", "--path", dir)
	assert.Equal(t, 0, code)
}

func TestE2E_StatusJSON(t *testing.T) {
	dir := writeWorkspace(t)
	_, code := run(t, "init", dir, "--project", "detectiq")
	require.Equal(t, 0, code)

	out, code := run(t, "status", "--path", dir, "--json")
	require.Equal(t, 0, code)

	var status domain.WorkspaceStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "detectiq", status.Project)
	assert.Equal(t, "gpt-4o", status.Model)
	assert.NotNil(t, status.Sync)
	assert.Len(t, status.VectorStores, 3)
}

func TestE2E_HistoryAfterSync(t *testing.T) {
	dir := writeWorkspace(t)

	_, code := run(t, "sync", "--path", dir)
	require.Equal(t, 0, code)

	out, code := run(t, "history", "--path", dir, "--json")
	require.Equal(t, 0, code)

	var runs []domain.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.NotEmpty(t, runs)
	assert.Equal(t, "sync", runs[0].Command)
	assert.Equal(t, domain.RunOK, runs[0].Status)
}
