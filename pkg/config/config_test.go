package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultMatchesReferenceWorkload(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int{4}, cfg.Workers)
	assert.Equal(t, 210000, cfg.TotalItems)
	assert.Equal(t, 1000, cfg.PayloadSize)

	wl := cfg.Workloads()
	require.Len(t, wl, 1)
	assert.Equal(t, 52500, wl[0].ItemsForWorker(0))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workers: [1, 2, 4, 8]
total_items: 1000
backoff: spin
implementations: [lockfreestack, finestack]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4, 8}, cfg.Workers)
	assert.Equal(t, 1000, cfg.TotalItems)
	assert.Equal(t, "spin", cfg.Backoff)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1000, cfg.PayloadSize)
	assert.Equal(t, 5, cfg.Iterations)

	assert.Len(t, cfg.Workloads(), 4)
	assert.True(t, cfg.Selected("LockFreeStack"))
	assert.False(t, cfg.Selected("coarsestack"))
}

func TestLoadKeepsExplicitZero(t *testing.T) {
	cfg, err := Load(writeConfig(t, "payload_size: 0\ncpus: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.PayloadSize)
	assert.Equal(t, 0, cfg.CPUs)
	assert.Equal(t, 210000, cfg.TotalItems)
}

func TestLoadEmptyFileIsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "workers: [1, 2"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "workers: [0]\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "backoff: forever\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Workers = nil }},
		{"negative workers", func(c *Config) { c.Workers = []int{2, -1} }},
		{"zero items", func(c *Config) { c.TotalItems = 0 }},
		{"negative payload", func(c *Config) { c.PayloadSize = -1 }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"negative cpus", func(c *Config) { c.CPUs = -2 }},
		{"unknown backoff", func(c *Config) { c.Backoff = "later" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSelectedWithoutFilter(t *testing.T) {
	assert.True(t, Default().Selected("anything"))
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("1, 2,4,,8")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 8}, got)

	_, err = ParseIntList("1,two")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseNameList(t *testing.T) {
	assert.Empty(t, ParseNameList(""))
	assert.Empty(t, ParseNameList(" , ,"))
	assert.Equal(t, []string{"finestack", "lockfreestack"}, ParseNameList("finestack, ,lockfreestack,"))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("STACK_TEST_INT", "12")
	t.Setenv("STACK_TEST_BAD_INT", "-3")
	t.Setenv("STACK_TEST_BOOL", "true")

	assert.Equal(t, 12, GetEnvInt("STACK_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("STACK_TEST_BAD_INT", 1))
	assert.Equal(t, 7, GetEnvInt("STACK_TEST_UNSET", 7))
	assert.True(t, GetEnvBool("STACK_TEST_BOOL", false))
	assert.False(t, GetEnvBool("STACK_TEST_UNSET", false))
}
