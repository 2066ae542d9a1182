package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	return newRootCmd().Flags()
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, DefaultPostgresDriver, cfg.PostgresDriver)
	assert.Equal(t, DefaultMaxInFlight, cfg.MaxInFlight)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nlog_format: json\nmax_in_flight: 2\n"), 0o600))

	t.Setenv("MCP_LOG_LEVEL", "error")
	t.Setenv("MCP_POSTGRES_DRIVER", "pgx")

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--max-in-flight=16"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel, "env overrides file")
	assert.Equal(t, "json", cfg.LogFormat, "file overrides default")
	assert.Equal(t, "pgx", cfg.PostgresDriver, "env overrides default")
	assert.Equal(t, 16, cfg.MaxInFlight, "flag overrides file")
}

func TestLoadConfig_UnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("MCP_LOG_FORMAT", "json")

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"--log-level=loud"}},
		{"log format", []string{"--log-format=xml"}},
		{"postgres driver", []string{"--postgres-driver=odbc"}},
		{"max in flight", []string{"--max-in-flight=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := newFlagSet()
			require.NoError(t, flags.Parse(tt.args))

			_, err := LoadConfig("", flags)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, &Config{LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"server":"sql-mcp-server"`)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, ServerName+" "+ServerVersion+"\n", out.String())
}
