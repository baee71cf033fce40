package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
)

const testOverlay = `
version: "2024.1-site"
aliases:
  Tylenol Extra: acetaminophen
renal:
  - drug: Lisinopril
    baseline_dose: 10
    normal: {dose: "10mg daily", max_daily: "40mg", max_daily_mg: 40, multiplier: 1}
    mild: {dose: "10mg daily", max_daily: "40mg", max_daily_mg: 40, multiplier: 1}
    moderate: {dose: "5mg daily", max_daily: "20mg", max_daily_mg: 20, multiplier: 0.5}
    severe: {dose: "2.5mg daily", max_daily: "10mg", max_daily_mg: 10, multiplier: 0.25}
interactions:
  - a: clopidogrel
    b: omeprazole
    severity: moderate
    effect: Reduced antiplatelet effect
`

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func writeOverlay(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadOverlay(t *testing.T) {
	tables, err := LoadOverlay([]byte(testOverlay))
	require.NoError(t, err)

	assert.Equal(t, "2024.1-site", tables.Version)
	assert.Equal(t, "acetaminophen", tables.Resolve("tylenol extra"))
	assert.Equal(t, "acetaminophen", tables.Resolve("paracetamol"), "builtin aliases survive")

	r, ok := tables.RenalRule("lisinopril")
	require.True(t, ok)
	assert.Equal(t, 0.25, r.Severe.Multiplier, "overlay replaces builtin entry")

	in, ok := tables.Interaction("omeprazole", "clopidogrel")
	require.True(t, ok)
	assert.Equal(t, domain.SeverityModerate, in.Severity)

	_, ok = tables.Interaction("warfarin", "aspirin")
	assert.True(t, ok, "builtin interactions survive")
	assert.Equal(t, len(Builtin().Renal), len(tables.Renal))
}

func TestLoadOverlay_RevisionTracksContent(t *testing.T) {
	withBeers := []byte(`
beers:
  - drug: loratadine
    reason: Test entry
    alternative: cetirizine
`)
	unchanged := []byte(`aliases: {}`)

	a, err := LoadOverlay(withBeers)
	require.NoError(t, err)
	b, err := LoadOverlay(unchanged)
	require.NoError(t, err)
	again, err := LoadOverlay(withBeers)
	require.NoError(t, err)

	assert.Equal(t, BuiltinVersion, a.Version)
	assert.Equal(t, BuiltinVersion, b.Version)
	_, ok := a.BeersEntry("loratadine")
	assert.True(t, ok)
	_, ok = b.BeersEntry("loratadine")
	assert.False(t, ok)

	assert.Len(t, a.Fingerprint(), 64)
	assert.NotEqual(t, a.Revision(), b.Revision())
	assert.Equal(t, a.Revision(), again.Revision())
	assert.True(t, strings.HasPrefix(a.Revision(), BuiltinVersion+"+"))
	assert.Equal(t, a.Fingerprint(), a.Stats().Fingerprint)
}

func TestLoadOverlay_Invalid(t *testing.T) {
	_, err := LoadOverlay([]byte("renal: [this is not: valid"))
	assert.ErrorIs(t, err, ErrInvalidTables)

	_, err = LoadOverlay([]byte(`
interactions:
  - a: warfarin
    b: aspirin
    severity: catastrophic
`))
	assert.ErrorIs(t, err, ErrInvalidTables)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMergeKeyed(t *testing.T) {
	base := []AgeLimitRule{{Drug: "a", AgeLimit: 1}, {Drug: "b", AgeLimit: 2}}
	over := []AgeLimitRule{{Drug: "b", AgeLimit: 20}, {Drug: "c", AgeLimit: 3}}

	got := mergeKeyed(base, over, func(r AgeLimitRule) string { return r.Drug })

	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].AgeLimit)
	assert.Equal(t, 20.0, got[1].AgeLimit)
	assert.Equal(t, "c", got[2].Drug)
}

func TestRegistry_SwapAndReload(t *testing.T) {
	reg := NewRegistry(Builtin(), newTestLogger())
	assert.Equal(t, BuiltinVersion, reg.Current().Version)

	dir := t.TempDir()
	path := writeOverlay(t, dir, testOverlay)
	require.NoError(t, reg.ReloadFrom(path))
	assert.Equal(t, "2024.1-site", reg.Current().Version)

	bad := writeOverlay(t, dir, "version: [")
	assert.Error(t, reg.ReloadFrom(bad))
	assert.Equal(t, "2024.1-site", reg.Current().Version, "failed reload keeps active tables")

	old := reg.Swap(Builtin())
	assert.Equal(t, "2024.1-site", old.Version)
	assert.Equal(t, BuiltinVersion, reg.Current().Version)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeOverlay(t, dir, `version: "v1"`)

	reg := NewRegistry(Builtin(), newTestLogger())
	w := NewWatcher(path, reg, newTestLogger())
	w.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`version: "v2"`), 0644))

	require.Eventually(t, func() bool {
		return reg.Current().Version == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	select {
	case <-w.Reloaded():
	case <-time.After(time.Second):
		t.Fatal("reload was not signalled")
	}

	cancel()
	assert.NoError(t, <-done)
}
