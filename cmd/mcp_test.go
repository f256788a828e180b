package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMCPServerKeepsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {
    "filesystem": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem"]},
    "ytchat": {"command": "/old/path", "args": []}
  }
}`), 0o644))

	entry := MCPServerConfig{Command: "/usr/local/bin/ytchat", Args: []string{"mcp"}, Env: map[string]string{"XDG_CACHE_HOME": "/tmp/cache"}}
	require.NoError(t, registerMCPServer(path, "ytchat", entry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		GlobalShortcut string                     `json:"globalShortcut"`
		MCPServers     map[string]json.RawMessage `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Ctrl+Space", doc.GlobalShortcut)
	require.Contains(t, doc.MCPServers, "filesystem")
	assert.JSONEq(t, `{"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem"]}`, string(doc.MCPServers["filesystem"]))

	var got MCPServerConfig
	require.NoError(t, json.Unmarshal(doc.MCPServers["ytchat"], &got))
	assert.Equal(t, entry, got)
}

func TestRegisterMCPServerWithoutServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	require.NoError(t, registerMCPServer(path, "ytchat", MCPServerConfig{Command: "ytchat", Args: []string{"mcp"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ytchat"`)
}

func TestRegisterMCPServerErrors(t *testing.T) {
	dir := t.TempDir()

	err := registerMCPServer(filepath.Join(dir, "missing.json"), "ytchat", MCPServerConfig{})
	assert.ErrorContains(t, err, "not found")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{not json`), 0o644))
	err = registerMCPServer(broken, "ytchat", MCPServerConfig{})
	assert.ErrorContains(t, err, "parsing existing config")
}

func TestClaudeDesktopConfigPath(t *testing.T) {
	t.Setenv("APPDATA", `C:\Users\me\AppData\Roaming`)

	path, err := claudeDesktopConfigPath("windows")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(`C:\Users\me\AppData\Roaming`, "Claude", "claude_desktop_config.json"), path)

	path, err = claudeDesktopConfigPath("linux")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join(".config", "Claude", "claude_desktop_config.json")), path)

	_, err = claudeDesktopConfigPath("plan9")
	assert.Error(t, err)
}
