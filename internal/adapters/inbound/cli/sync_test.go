package cli_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/inbound/cli"
	"github.com/detectiq/workbench/internal/domain"
)

const cliManifest = `[tool.poetry]
name = "detectiq"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31.0"
`

const cliLock = `[[package]]
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

// writeSyncFixture lays out a minimal Poetry workspace in a temp dir.
func writeSyncFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(cliManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poetry.lock"), []byte(cliLock), 0o644))
	return dir
}

// scrubSecretEnv blanks the secret overrides so commands under test never
// reach the OS keyring.
func scrubSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY",
		"DETECTIQ_SPLUNK_PASSWORD",
		"DETECTIQ_ELASTIC_API_KEY",
		"DETECTIQ_MICROSOFT_XDR_CLIENT_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestSyncCommand_WritesExports(t *testing.T) {
	dir := writeSyncFixture(t)

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(errBuf)
	root.SetArgs([]string{"sync", "--path", dir})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "requests==2.31.0")
	assert.Contains(t, string(data), "certifi==2023.11.17")

	assert.Contains(t, buf.String(), "requirements.txt")
	assert.Contains(t, errBuf.String(), "Requirements synced")
}

func TestSyncCommand_JSON(t *testing.T) {
	dir := writeSyncFixture(t)

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"sync", "--path", dir, "--json"})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), `"fingerprint"`)
	assert.Contains(t, buf.String(), `"files"`)
}

func TestSyncCommand_CheckReportsDrift(t *testing.T) {
	dir := writeSyncFixture(t)

	first := cli.NewRootCmdForTest()
	first.SetOut(io.Discard)
	first.SetErr(io.Discard)
	first.SetArgs([]string{"sync", "--path", dir})
	require.NoError(t, first.Execute())

	// Hand-edit an export; the gate must notice.
	path := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("requests==9.9.9\n"), 0o644))

	check := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	check.SetOut(buf)
	check.SetErr(io.Discard)
	check.SetArgs([]string{"sync", "--check", "--path", dir})
	err := check.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutOfSync)
	assert.Contains(t, buf.String(), "drifted")
}

func TestSyncCommand_CheckPassesWhenClean(t *testing.T) {
	dir := writeSyncFixture(t)

	first := cli.NewRootCmdForTest()
	first.SetOut(io.Discard)
	first.SetErr(io.Discard)
	first.SetArgs([]string{"sync", "--path", dir})
	require.NoError(t, first.Execute())

	check := cli.NewRootCmdForTest()
	check.SetOut(io.Discard)
	check.SetErr(io.Discard)
	check.SetArgs([]string{"sync", "--check", "--path", dir})
	assert.NoError(t, check.Execute())
}

func TestSyncCommand_FailsWithoutManifest(t *testing.T) {
	dir := t.TempDir()

	root := cli.NewRootCmdForTest()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"sync", "--path", dir})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading manifest")
}
