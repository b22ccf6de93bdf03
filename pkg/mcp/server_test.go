package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	s := NewServer(ServerDeps{Builder: newTestBuilder(t)})
	require.NotNil(t, s)
	assert.NotNil(t, s.MCPServer())
	assert.NotNil(t, s.logger)
}

func TestToolRegistration(t *testing.T) {
	s := NewServer(ServerDeps{Builder: newTestBuilder(t)})
	require.Len(t, s.mcpServer.ListTools(), 5)
	for _, name := range []string{"authflow.list", "authflow.describe", "authflow.resolve", "authflow.validate", "authflow.diagram"} {
		assert.NotNil(t, s.mcpServer.GetTool(name), "tool %s should be registered", name)
	}
	assert.Nil(t, s.mcpServer.GetTool("authflow.start"))
}

func TestToolRegistration_WithExecutor(t *testing.T) {
	fx := newFixture(t)
	require.Len(t, fx.server.mcpServer.ListTools(), 7)
	assert.NotNil(t, fx.server.mcpServer.GetTool("authflow.start"))
	assert.NotNil(t, fx.server.mcpServer.GetTool("authflow.signal"))
}
