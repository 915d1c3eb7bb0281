package cli_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/inbound/cli"
)

func TestHistoryCommand_Empty(t *testing.T) {
	dir := t.TempDir()

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"history", "--path", dir})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "No runs recorded yet.")
}

func TestHistoryCommand_RecordsSyncRuns(t *testing.T) {
	dir := writeSyncFixture(t)

	sync := cli.NewRootCmdForTest()
	sync.SetOut(io.Discard)
	sync.SetErr(io.Discard)
	sync.SetArgs([]string{"sync", "--path", dir})
	require.NoError(t, sync.Execute())

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"history", "--path", dir, "--json"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, `"command": "sync"`)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, "1 files written")
}

func TestHistoryCommand_LimitsRuns(t *testing.T) {
	dir := writeSyncFixture(t)

	for i := 0; i < 3; i++ {
		sync := cli.NewRootCmdForTest()
		sync.SetOut(io.Discard)
		sync.SetErr(io.Discard)
		sync.SetArgs([]string{"sync", "--path", dir})
		require.NoError(t, sync.Execute())
	}

	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"history", "--path", dir, "--json", "-n", "1"})
	require.NoError(t, root.Execute())

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"command"`)))
}
