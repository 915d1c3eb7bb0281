package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpadapter "github.com/detectiq/workbench/internal/adapters/inbound/mcp"
)

func TestNewWorkbenchMCPServer(t *testing.T) {
	s := mcpadapter.NewWorkbenchMCPServer(t.TempDir())
	require.NotNil(t, s)
}

func TestMCPServerHasTools(t *testing.T) {
	s := mcpadapter.NewWorkbenchMCPServer(t.TempDir())
	require.NotNil(t, s)

	tools := s.ListTools()
	require.NotNil(t, tools)

	expectedTools := []string{
		"detectiq_sync_status",
		"detectiq_get_config",
		"detectiq_list_rulesets",
		"detectiq_check_vectorstores",
		"detectiq_render_launch_config",
	}

	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}

	assert.Len(t, tools, len(expectedTools), "should have exactly %d tools", len(expectedTools))
}
