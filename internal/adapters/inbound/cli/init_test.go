package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/inbound/cli"
)

func TestInitCmd_CreatesStarterFiles(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(tmpDir, ".detectiq.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "project:")

	launch, err := os.ReadFile(filepath.Join(tmpDir, ".vscode", "launch.json"))
	require.NoError(t, err)
	assert.Contains(t, string(launch), "DetectIQ: Django Backend")

	env, err := os.ReadFile(filepath.Join(tmpDir, ".env.example"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "OPENAI_API_KEY=")

	workflow, err := os.ReadFile(filepath.Join(tmpDir, ".github", "workflows", "requirements-sync.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(workflow), "detectiq sync --ci")
}

func TestInitCmd_ProjectFlag(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir, "--project", "threatlab"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(tmpDir, ".detectiq.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "threatlab")
}

func TestInitCmd_KeepsExistingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".detectiq.yaml"), []byte("project: keepme\n"), 0o644))

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"init", tmpDir})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(tmpDir, ".detectiq.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "project: keepme\n", string(data))
	assert.Contains(t, buf.String(), "Kept .detectiq.yaml")
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".detectiq.yaml"), []byte("project: old\n"), 0o644))

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir, "--force"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(tmpDir, ".detectiq.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old")
}
