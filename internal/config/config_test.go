package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Match.Threshold)
	assert.Equal(t, "matched", cfg.Match.Marker)
	assert.Equal(t, "Kontrol", cfg.Sheet.Selector)
	assert.Equal(t, "A", cfg.Sheet.NameColumn)
	assert.Equal(t, "B", cfg.Sheet.CandidateColumn)
	assert.Equal(t, "G", cfg.Sheet.AnnotationColumn)
	assert.Equal(t, "_updated", cfg.Sheet.AnnotatedSuffix)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, "uploads", cfg.Paths.UploadDir)
	assert.Equal(t, "results", cfg.Paths.ResultDir)
	assert.Equal(t, "Unmatched.xlsx", cfg.Paths.ReportName)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, int32(1), cfg.Store.MinConns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 32, cfg.Server.MaxUploadMB)
	assert.InDelta(t, 2.0, cfg.Server.UploadRPS, 0.001)
	assert.Equal(t, 5, cfg.Server.UploadBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24, cfg.Monitoring.LookbackHours)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 5, cfg.Monitoring.MinFinishedRuns)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
match:
  threshold: 87
  marker: geldi
sheet:
  selector: Yoklama
  annotation_column: H
store:
  driver: none
  max_conns: 12
  min_conns: 2
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 87, cfg.Match.Threshold)
	assert.Equal(t, "geldi", cfg.Match.Marker)
	assert.Equal(t, "Yoklama", cfg.Sheet.Selector)
	assert.Equal(t, "H", cfg.Sheet.AnnotationColumn)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, int32(12), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "B", cfg.Sheet.CandidateColumn)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
match:
  threshold: 87
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ROLLCALL_MATCH_THRESHOLD", "90")
	t.Setenv("ROLLCALL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Match.Threshold)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// unsetEnv clears key for the test; dotenv loading would otherwise leak it.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev) //nolint:errcheck
			return
		}
		os.Unsetenv(key) //nolint:errcheck
	})
}

func TestLoadDotenv(t *testing.T) {
	dir := chdirTemp(t)
	unsetEnv(t, "ROLLCALL_MATCH_MARKER")
	unsetEnv(t, "ROLLCALL_SHEET_SELECTOR")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ROLLCALL_MATCH_MARKER=geldi\nROLLCALL_SHEET_SELECTOR=FromDotenv\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("ROLLCALL_SHEET_SELECTOR=FromLocal\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geldi", cfg.Match.Marker)
	assert.Equal(t, "FromLocal", cfg.Sheet.Selector)
}

func TestLoadEnvFiles_None(t *testing.T) {
	chdirTemp(t)
	assert.Empty(t, LoadEnvFiles())
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("match: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Match.Threshold = 80
	cfg.Match.Marker = "matched"
	cfg.Sheet.NameColumn = "A"
	cfg.Sheet.CandidateColumn = "B"
	cfg.Sheet.AnnotationColumn = "G"
	cfg.Pipeline.Concurrency = 4
	cfg.Store.Driver = "sqlite"
	cfg.Server.MaxUploadMB = 32
	cfg.Server.UploadRPS = 2
	cfg.Server.UploadBurst = 5
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"threshold low", func(c *Config) { c.Match.Threshold = -1 }, "match.threshold"},
		{"threshold high", func(c *Config) { c.Match.Threshold = 101 }, "match.threshold"},
		{"blank marker", func(c *Config) { c.Match.Marker = " " }, "match.marker"},
		{"bad column", func(c *Config) { c.Sheet.AnnotationColumn = "7" }, "sheet.annotation_column"},
		{"negative skip", func(c *Config) { c.Sheet.RosterSkipRows = -2 }, "roster_skip_rows"},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url"},
		{"zero upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"zero rate", func(c *Config) { c.Server.UploadRPS = 0 }, "upload_rps"},
		{"fail rate above one", func(c *Config) { c.Monitoring.FailureRateThreshold = 1.5 }, "failure_rate_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
