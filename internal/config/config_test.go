package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, c.HeadRows)
	assert.Equal(t, "daily_active_minutes_instagram", c.Bins.Source)
	assert.Equal(t, []float64{0, 100, 200, 300, 400, 500}, c.Bins.Edges)
	assert.True(t, c.Bins.Right)
	assert.Equal(t, 30, c.Histogram.Bins)
	assert.Equal(t, uint64(42), c.Histogram.Seed)
	assert.Equal(t, ":8080", c.ServerAddr)
	assert.Zero(t, c.CacheTTL())

	reg, err := c.Registry()
	require.NoError(t, err)
	_, ok := reg.Lookup("activity_by_age")
	assert.True(t, ok)
}

func TestLoadFileEnvAndDotenv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
head_rows: 3
bins:
  source: minutes
  edges: [0, 60, 120]
  labels: [short, long]
charts:
  reels_by_activity:
    column: reels
  sleep_by_activity:
    kind: bin_aggregate
    column: sleep_hours
    hue: activity_bin
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("EDALOOM_SERVER_ADDR=:9999\n"), 0o644))
	t.Setenv("EDALOOM_LOG_LEVEL", "debug")
	t.Cleanup(func() { os.Unsetenv("EDALOOM_SERVER_ADDR") })

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.HeadRows)
	assert.Equal(t, "minutes", c.Bins.Source)
	assert.Equal(t, "activity_bin", c.Bins.Target, "unset keys keep defaults")
	assert.Equal(t, []string{"short", "long"}, c.Bins.Labels)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, ":9999", c.ServerAddr)

	reg, err := c.Registry()
	require.NoError(t, err)
	s, _ := reg.Lookup("reels_by_activity")
	assert.Equal(t, "reels", s.Column)
	assert.Equal(t, charts.KindBinAggregate, s.Kind)
	s, _ = reg.Lookup("activity_distribution")
	assert.Equal(t, "minutes", s.Column)
	_, ok := reg.Lookup("sleep_by_activity")
	assert.True(t, ok)
}

func TestLoadRejectsInvalid(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bins:\n  edges: [0, 10]\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err, "five default labels do not fit two edges")

	require.NoError(t, os.WriteFile(path, []byte("head_rows: 0\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(home, "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	c.HeadRows = 8
	c.Delimiter = ";"
	require.NoError(t, Save(c, ""))

	dir, err := Dir()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	back, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, back.HeadRows)
	r, err := back.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ';', r)
	assert.Equal(t, c.Bins.Labels, back.Bins.Labels)
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]rune{"": 0, ",": ',', "tab": '\t', `\t`: '\t', "|": '|'}
	for in, want := range tests {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{";;", `"`} {
		_, err := ParseDelimiter(bad)
		assert.Error(t, err, bad)
	}
}
