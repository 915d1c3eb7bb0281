package cli_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detectiq/workbench/internal/adapters/inbound/cli"
)

func runSettings(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--path", dir))
	err := root.Execute()
	return buf.String(), err
}

func TestSettingsShow_Defaults(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	out, err := runSettings(t, dir, "settings", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"model": "gpt-4o"`)
	assert.Contains(t, out, `"log_level": "INFO"`)
}

func TestSettingsSet_PersistsChanges(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	out, err := runSettings(t, dir, "settings", "set", "model=o3-mini", "log_level=DEBUG")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 2 setting(s)")

	out, err = runSettings(t, dir, "settings", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"model": "o3-mini"`)
	assert.Contains(t, out, `"log_level": "DEBUG"`)
}

func TestSettingsSet_NestedKeys(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	_, err := runSettings(t, dir, "settings", "set",
		"rule_directories.sigma=custom/sigma",
		"integrations.splunk.enabled=true",
		"integrations.splunk.hostname=splunk.local:8089",
	)
	require.NoError(t, err)

	out, err := runSettings(t, dir, "settings", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "custom/sigma")
	assert.Contains(t, out, `"hostname": "splunk.local:8089"`)
}

func TestSettingsSet_UnknownKey(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	_, err := runSettings(t, dir, "settings", "set", "nope=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown settings key "nope"`)
}

func TestSettingsSet_MalformedPair(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	_, err := runSettings(t, dir, "settings", "set", "model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected key=value, got "model"`)
}

func TestSettingsTestIntegration_UnknownName(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	_, err := runSettings(t, dir, "settings", "test-integration", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown integration "bogus"`)
}

func TestSettingsTestIntegration_NoneEnabled(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	out, err := runSettings(t, dir, "settings", "test-integration")
	require.NoError(t, err)
	assert.Contains(t, out, "No integrations enabled")
}

func TestSettingsTestIntegration_Unconfigured(t *testing.T) {
	scrubSecretEnv(t)
	dir := t.TempDir()

	_, err := runSettings(t, dir, "settings", "set", "integrations.splunk.enabled=true")
	require.NoError(t, err)

	_, err = runSettings(t, dir, "settings", "test-integration", "splunk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "splunk hostname is not configured")
}
