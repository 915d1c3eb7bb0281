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
)

// nameWorkspace pins the project name so assertions do not depend on the
// random temp dir basename.
func nameWorkspace(t *testing.T, dir string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, ".detectiq.yaml"), []byte("project: detectiq\n"), 0o644)
	require.NoError(t, err)
}

func TestStatusCommand_JSON(t *testing.T) {
	scrubSecretEnv(t)
	dir := writeSyncFixture(t)
	nameWorkspace(t, dir)

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"status", "--path", dir, "--json"})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), `"project": "detectiq"`)
	assert.Contains(t, buf.String(), `"model"`)
	assert.Contains(t, buf.String(), `"vector_stores"`)
}

func TestStatusCommand_Plain(t *testing.T) {
	scrubSecretEnv(t)
	dir := writeSyncFixture(t)
	nameWorkspace(t, dir)

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"status", "--path", dir})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "detectiq")
	assert.Contains(t, out, "Requirements")
	assert.Contains(t, out, "Integrations")
}
