package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaproute/internal/export"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "leaproute.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return tmpDir, cfgPath
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "${TEST_VAR_ONE}", expected: "value_one"},
		{name: "multiple variables", input: "${TEST_VAR_ONE}/${TEST_VAR_TWO}", expected: "value_one/value_two"},
		{name: "variable in path", input: "/path/to/${TEST_VAR_ONE}/file", expected: "/path/to/value_one/file"},
		{name: "unset variable stays as-is", input: "${UNSET_VARIABLE}", expected: "${UNSET_VARIABLE}"},
		{name: "no variables", input: "plain string", expected: "plain string"},
		{name: "empty string", input: "", expected: ""},
		{name: "mixed set and unset", input: "${TEST_VAR_ONE}:${UNSET_VAR}", expected: "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	tmpDir, cfgPath := writeConfig(t, "preview_rows: 5\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(tmpDir, ".leaproute", "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(tmpDir, "routes.yaml"), cfg.RoutesFile)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 5, cfg.PreviewRows)
	assert.Equal(t, 8766, cfg.Server.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Nil(t, cfg.ExportTarget())
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_ExportTarget(t *testing.T) {
	ResetConfig()
	t.Setenv("TEST_PG_PASSWORD", "s3cret")
	_, cfgPath := writeConfig(t, `export:
  target:
    type: postgres
    host: db.internal
    database: analytics
    user: loader
    password: ${TEST_PG_PASSWORD}
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	target := cfg.ExportTarget()
	require.NotNil(t, target)
	assert.Equal(t, "postgres", target.Type)
	assert.Equal(t, "s3cret", target.Password)
	assert.Equal(t, 5432, target.Port)
	assert.Equal(t, "public", target.Schema)
}

func TestLoadConfig_ExportPathResolvedAgainstRoot(t *testing.T) {
	ResetConfig()
	tmpDir, cfgPath := writeConfig(t, `export:
  target:
    type: sqlite
    path: out/export.db
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "out", "export.db"), cfg.ExportTarget().Path)
}

func TestLoadConfig_UnknownExportType(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, `export:
  target:
    type: snowflake
`)

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)

	var unknown *export.UnknownExporterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "snowflake", unknown.Type)
	assert.Contains(t, err.Error(), "Available targets")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, "log_level: info\n")
	t.Setenv("LEAPROUTE_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "log level")
	require.NoError(t, flags.Set("log-level", "debug"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "flag value should override config file and env var")
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, "log_level: info\nserver:\n  port: 9000\n")
	t.Setenv("LEAPROUTE_LOG_LEVEL", "error")
	t.Setenv("LEAPROUTE_SERVER__PORT", "9100")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "env var should override config file")
	assert.Equal(t, 9100, cfg.Server.Port, "nested keys use a double underscore")
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, "log_level: info\n")
	t.Setenv("LEAPROUTE_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "log level")

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "env var should be used when flag is not set")
}

func TestLoadConfig_StateFlagRelativeToCwd(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, "state_path: from_file.db\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "state path")
	require.NoError(t, flags.Set("state", "flag.db"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	want, err := filepath.Abs("flag.db")
	require.NoError(t, err)
	assert.Equal(t, want, cfg.StatePath)
}

func TestLoadConfig_ProjectDirFlag(t *testing.T) {
	ResetConfig()
	tmpDir, _ := writeConfig(t, "routes_file: pipelines.yaml\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "project dir")
	require.NoError(t, flags.Set("project-dir", tmpDir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(tmpDir, "pipelines.yaml"), cfg.RoutesFile)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	ResetConfig()
	_, cfgPath := writeConfig(t, "log_level: [unclosed\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{StatePath: "state.db", OutputFormat: "auto", LogLevel: "warn"}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing state", mutate: func(c *Config) { c.StatePath = "" }, errSubstr: "state_path is required"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, errSubstr: "xml"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: "unknown log_level"},
		{name: "negative preview", mutate: func(c *Config) { c.PreviewRows = -1 }, errSubstr: "preview_rows"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, errSubstr: "server.port"},
		{name: "known target uppercase", mutate: func(c *Config) {
			c.Export = &ExportConfig{Target: &export.Target{Type: "DuckDB"}}
		}},
		{name: "unknown target", mutate: func(c *Config) {
			c.Export = &ExportConfig{Target: &export.Target{Type: "mysql"}}
		}, errSubstr: "unknown export target type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Level(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{Verbose: true, LogLevel: "error"}).Level())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "INFO"}).Level())
	assert.Equal(t, slog.LevelWarn, (&Config{}).Level())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "bogus"}).Level())
}
