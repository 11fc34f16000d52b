package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Sampler.Chains)
	assert.Equal(t, 1000, cfg.Sampler.Warmup)
	assert.Equal(t, 6000, cfg.Sampler.Draws)
	assert.Equal(t, int64(42), cfg.Sampler.Seed)

	from, to, err := cfg.Window()
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2022, 9, 30, 0, 0, 0, 0, time.UTC), to)
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
data:
  prices_file: testdata/prices.csv
  window_from: "2015-06-01"
  window_to: "2020-06-01"
sampler:
  chains: 4
  seed: 7
  timeout: 5m
log:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)

	// Overridden values.
	assert.Equal(t, "testdata/prices.csv", cfg.Data.PricesFile)
	assert.Equal(t, 4, cfg.Sampler.Chains)
	assert.Equal(t, int64(7), cfg.Sampler.Seed)
	assert.Equal(t, 5*time.Minute, cfg.SamplerTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)

	// Defaults survive for everything else.
	assert.Equal(t, 6000, cfg.Sampler.Draws)
	assert.Equal(t, "127.0.0.1:5000", cfg.Server.Addr)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json",
		`{"sampler": {"chains": 3, "fallback_only": true}}`)

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 3, cfg.Sampler.Chains)
	assert.True(t, cfg.Sampler.FallbackOnly)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Data.PricesFile = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Data.WindowFrom = "01/01/2012"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Data.WindowTo = "2011-12-31"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Sampler.Chains = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Sampler.Timeout = "soon"
	assert.Error(t, cfg.Validate())
}

func TestSamplerTimeoutUnset(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Sampler.Timeout = ""
	assert.Equal(t, time.Duration(0), cfg.SamplerTimeout())
}
