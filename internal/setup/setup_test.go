package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "medsafe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestLoadClientConfig_Missing(t *testing.T) {
	config, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, config.MCPServers)
}

func TestLoadClientConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	binary := writeExecutable(t, dir)
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("logging:\n  level: info\n"), 0o644))

	path := filepath.Join(dir, "client", "claude_desktop_config.json")
	existing := `{"theme": "dark", "mcpServers": {"other": {"command": "/bin/other"}}}`
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	entry, err := Configure(path, Options{
		BinaryPath:  binary,
		ConfigFile:  cfgFile,
		AuditDBPath: "/var/lib/medsafe/audit.db",
	})
	require.NoError(t, err)
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, []string{"serve", "--config", cfgFile}, entry.Args)
	assert.Equal(t, "true", entry.Env["MEDSAFE_AUDIT_ENABLED"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"dark"`, string(raw["theme"]))

	config, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Len(t, config.MCPServers, 2)
	assert.Equal(t, "/bin/other", config.MCPServers["other"].Command)

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, binary, status.Command)
	assert.Empty(t, status.Issues)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Len(t, status.Issues, 1)

	_, err = Configure(path, Options{
		BinaryPath: filepath.Join(dir, "gone"),
		ConfigFile: filepath.Join(dir, "missing.yaml"),
	})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Len(t, status.Issues, 2)
}

func TestDesktopConfigPath(t *testing.T) {
	path, err := DesktopConfigPath()
	if err != nil {
		t.Skipf("unsupported platform: %v", err)
	}
	assert.Equal(t, "claude_desktop_config.json", filepath.Base(path))
}
