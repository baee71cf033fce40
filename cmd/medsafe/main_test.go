package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/internal/service"
	"github.com/medsafe-mcp-server/internal/setup"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	return writeConfigWithAudit(t, false, extra)
}

func writeConfigWithAudit(t *testing.T, auditEnabled bool, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
logging:
  level: error
  format: text
audit:
  enabled: %t
  db_path: %s
%s`, auditEnabled, filepath.Join(dir, "audit.db"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	root := rootCmd()
	root.SetArgs(append(args, "--env-file", ""))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestTablesCommand(t *testing.T) {
	out, err := execute(t, "", "tables", "--config", writeConfig(t, ""))
	require.NoError(t, err)

	var stats knowledge.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, knowledge.BuiltinVersion, stats.Version)
	assert.Greater(t, stats.KnownDrugs, 0)
}

func TestAssessCommand(t *testing.T) {
	input := `[
		{"request": {"drug": "tetracycline"}, "patient": {"age": 5}},
		{"request": {"drug": ""}, "patient": {"age": 40}}
	]`

	out, err := execute(t, input, "assess", "--config", writeConfig(t, ""))
	require.NoError(t, err)

	var results []*domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 7.5, results[0].RiskScore)
	assert.Equal(t, domain.RiskHigh, results[0].RiskLevel)
	assert.Equal(t, domain.RiskUnknown, results[1].RiskLevel)
	assert.NotEmpty(t, results[1].Error)
}

func TestAssessCommand_CompareFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	input := `[
		{"request": {"drug": "diphenhydramine"}, "patient": {"age": 78}},
		{"request": {"drug": "acetaminophen"}, "patient": {"age": 40}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	out, err := execute(t, "", "assess", "--file", path, "--compare", "--config", writeConfig(t, ""))
	require.NoError(t, err)

	var result struct {
		Assessments []*domain.Assessment  `json:"assessments"`
		Comparison  domain.RiskComparison `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Assessments, 2)
	assert.Equal(t, "acetaminophen", result.Comparison.Safest)
	assert.Equal(t, "diphenhydramine", result.Comparison.HighestRisk)
}

func TestAssessCommand_BadInput(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := execute(t, "not json", "assess", "--config", cfg)
	assert.Error(t, err)

	_, err = execute(t, "[]", "assess", "--config", cfg)
	assert.Error(t, err)

	_, err = execute(t, "", "assess", "--file", filepath.Join(t.TempDir(), "missing.json"), "--config", cfg)
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "", "classify", "respiratory distress", "mild rash", "--config", writeConfig(t, ""))
	require.NoError(t, err)

	var summary domain.SeveritySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, domain.SeverityLifeThreatening, summary.Overall)
	require.Len(t, summary.Classifications, 2)
	assert.Equal(t, "critical:respiratory distress", summary.Classifications[0].MatchedRule)

	_, err = execute(t, "", "classify", "--config", writeConfig(t, ""))
	assert.Error(t, err)
}

func TestNewApp(t *testing.T) {
	a, err := newApp(appOptions{configFile: writeConfigWithAudit(t, true, ""), logOutput: io.Discard})
	require.NoError(t, err)
	assert.NotNil(t, a.audit)
	assert.NotNil(t, a.engine)
	assert.IsType(t, &service.CachingAssessor{}, a.assessor)
	assert.NoError(t, a.Close())

	a, err = newApp(appOptions{configFile: writeConfig(t, "cache:\n  enabled: false\n"), logOutput: io.Discard})
	require.NoError(t, err)
	assert.Nil(t, a.audit)
	assert.Same(t, a.engine, a.assessor)
	assert.NoError(t, a.Close())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := newApp(appOptions{
		configFile: writeConfig(t, "cache:\n  redis_url: \"://bad\"\n"),
		logOutput:  io.Discard,
	})
	assert.Error(t, err)

	_, err = newApp(appOptions{
		configFile: writeConfig(t, "engine:\n  max_workers: -1\n"),
		logOutput:  io.Discard,
	})
	assert.Error(t, err)

	_, err = newApp(appOptions{
		configFile: writeConfig(t, "engine:\n  rule_tables_path: /nonexistent/tables.yaml\n"),
		logOutput:  io.Discard,
	})
	assert.Error(t, err)
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	clientConfig := filepath.Join(dir, "client.json")
	binary := filepath.Join(dir, "medsafe")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))

	out, err := execute(t, "", "setup", "install", "--client-config", clientConfig, "--binary", binary)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered medsafe")

	out, err = execute(t, "", "setup", "status", "--client-config", clientConfig)
	require.NoError(t, err)
	var status setup.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Configured)
	assert.Equal(t, binary, status.Command)
}
