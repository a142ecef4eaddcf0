package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(Options{LookupEnv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "fleetreg.yaml", `
db_path: /var/lib/fleetreg/fleet.db
listen: 127.0.0.1:9090
log_level: debug
code_length: 8
activation_ttl: 2h
freshness_window: 90s
`)

	cfg, err := Load(Options{File: path, LookupEnv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fleetreg/fleet.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, 2*time.Hour, cfg.ActivationTTL)
	assert.Equal(t, 90*time.Second, cfg.FreshnessWindow)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep defaults")
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml"), LookupEnv: noEnv})
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "code_length: [1, 2\n")
	_, err := Load(Options{File: path, LookupEnv: noEnv})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "file", cfgErr.Source)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "fleetreg.yaml", "listen: :9000\ncode_length: 7\n")

	cfg, err := Load(Options{
		File: path,
		LookupEnv: envMap(map[string]string{
			"FLEETREG_LISTEN":         ":9100",
			"FLEETREG_ACTIVATION_TTL": "15m",
			"FLEETREG_LOG_FORMAT":     "json",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, 7, cfg.CodeLength)
	assert.Equal(t, 15*time.Minute, cfg.ActivationTTL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_DotenvIsFallbackForEnvironment(t *testing.T) {
	envFile := writeFile(t, ".env", "FLEETREG_DB=dotenv.db\nFLEETREG_CODE_LENGTH=8\n")

	cfg, err := Load(Options{
		EnvFile:   envFile,
		LookupEnv: envMap(map[string]string{"FLEETREG_DB": "env.db"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DBPath, "process environment wins")
	assert.Equal(t, 8, cfg.CodeLength)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env"), LookupEnv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_BadEnvValues(t *testing.T) {
	_, err := Load(Options{LookupEnv: envMap(map[string]string{
		"FLEETREG_CODE_LENGTH":    "six",
		"FLEETREG_SWEEP_INTERVAL": "often",
	})})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "env", cfgErr.Source)
	assert.Len(t, cfgErr.Problems, 2)
}

func TestValidate_Schema(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"code too short", func(c *Config) { c.CodeLength = 5 }, "code_length"},
		{"code too long", func(c *Config) { c.CodeLength = 9 }, "code_length"},
		{"ttl too short", func(c *Config) { c.ActivationTTL = 30 * time.Second }, "activation_ttl"},
		{"ttl too long", func(c *Config) { c.ActivationTTL = 8 * 24 * time.Hour }, "activation_ttl"},
		{"zero window", func(c *Config) { c.FreshnessWindow = 0 }, "freshness_window"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"empty db", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }, "listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "schema", cfgErr.Source)
			assert.Contains(t, cfgErr.Error(), tt.field)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
	cfg.LogLevel = "debug"
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "error"
	assert.Equal(t, "ERROR", cfg.SlogLevel().String())
}
