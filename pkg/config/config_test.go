package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlang/frost/pkg/config"
)

func TestParse_ValidYAML(t *testing.T) {
	data := []byte(`
max_iterations: 500
log_level: debug
log_format: json
metrics_enabled: true
tracing_enabled: false
`)
	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxIterations)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.TracingEnabled)
}

func TestParse_RejectsBadLogLevel(t *testing.T) {
	data := []byte(`
max_iterations: 500
log_level: verbose
log_format: json
`)
	_, err := config.Parse(data)
	assert.Error(t, err)
}

func TestParse_RejectsZeroMaxIterations(t *testing.T) {
	data := []byte(`
max_iterations: 0
log_level: info
log_format: console
`)
	_, err := config.Parse(data)
	assert.Error(t, err)
}

func TestLoad_ReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: 1000\nlog_level: info\nlog_format: console\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxIterations)
}

func TestDefault_MatchesSchedulerDefaultCap(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 10000, cfg.MaxIterations)
}

func TestConfig_ProjectsToSchedulerAndTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	schedCfg := cfg.ToSchedulerConfig()
	assert.Equal(t, cfg.MaxIterations, schedCfg.MaxIterations)

	telCfg := cfg.ToTelemetryConfig()
	assert.Equal(t, cfg.LogLevel, telCfg.Logging.Level)
	assert.Equal(t, cfg.LogFormat, telCfg.Logging.Format)
	assert.Equal(t, cfg.MetricsEnabled, telCfg.Metrics.Enabled)
	assert.Equal(t, cfg.TracingEnabled, telCfg.Tracing.Enabled)
}
