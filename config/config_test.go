package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/engine"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func env(vars map[string]string) Option {
	return WithLookup(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, engine.DefaultTxOptions, cfg.TxOptions())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "scholar.yaml", `
dialect: postgres
dsn: postgres://scholar@localhost/scholar?sslmode=disable
schema: ./school.yaml
tx:
  timeout: 10s
  maxWait: 500ms
  isolation: serializable
log:
  level: debug
  format: json
  statements: true
metrics:
  enabled: true
  namespace: school
`)
	cfg, err := Load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "./school.yaml", cfg.Schema)
	assert.Equal(t, engine.TxOptions{
		Isolation: sql.LevelSerializable,
		Timeout:   10 * time.Second,
		MaxWait:   500 * time.Millisecond,
	}, cfg.TxOptions())
	assert.True(t, cfg.Log.Statements)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "school", cfg.Metrics.Namespace)
	assert.Equal(t, time.Second, cfg.Metrics.SlowThreshold, "unset keys keep their default")

	_, err = Load(writeFile(t, "bad.yaml", "dialekt: sqlite\n"), env(nil))
	require.ErrorContains(t, err, "dialekt")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	require.Error(t, err)

	cfg, err = Load(writeFile(t, "empty.yaml", ""), env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnv(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "scholar.yaml", "dialect: postgres\ndsn: postgres://file\n")
	cfg, err := Load(path, env(map[string]string{
		"SCHOLAR_DSN":             "postgres://env",
		"SCHOLAR_TX_TIMEOUT":      "1m",
		"SCHOLAR_TX_ISOLATION":    "read_committed",
		"SCHOLAR_LOG_STATEMENTS":  "true",
		"SCHOLAR_METRICS_ENABLED": "1",
	}))
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://env", cfg.DSN, "the environment overrides the file")
	assert.Equal(t, time.Minute, cfg.Tx.Timeout)
	assert.Equal(t, sql.LevelReadCommitted, cfg.TxOptions().Isolation)
	assert.True(t, cfg.Log.Statements)
	assert.True(t, cfg.Metrics.Enabled)

	_, err = Load("", env(map[string]string{"SCHOLAR_TX_MAX_WAIT": "soon", "SCHOLAR_LOG_STATEMENTS": "maybe"}))
	require.ErrorContains(t, err, "SCHOLAR_TX_MAX_WAIT")
	require.ErrorContains(t, err, "SCHOLAR_LOG_STATEMENTS")
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()
	dotenv := writeFile(t, ".env", "SCHOLAR_DIALECT=mysql\nSCHOLAR_DSN=scholar:secret@tcp(localhost:3306)/scholar\n")
	cfg, err := Load("", env(map[string]string{"SCHOLAR_DSN": "root@tcp(db:3306)/scholar"}),
		WithEnvFile(dotenv, filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, "root@tcp(db:3306)/scholar", cfg.DSN, "the process environment wins over the file")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		name   string
		modify func(*Config)
		msg    string
	}{
		{"dialect", func(c *Config) { c.Dialect = "oracle" }, `Config.Dialect must be one of [sqlite postgres mysql], got "oracle"`},
		{"dsn", func(c *Config) { c.DSN = "" }, `Config.DSN failed "required"`},
		{"isolation", func(c *Config) { c.Tx.Isolation = "snapshot" }, "Config.Tx.Isolation"},
		{"timeout", func(c *Config) { c.Tx.Timeout = -time.Second }, "Config.Tx.Timeout"},
		{"level", func(c *Config) { c.Log.Level = "trace" }, "Config.Log.Level"},
		{"namespace", func(c *Config) { c.Metrics.Namespace = "my-app" }, `Config.Metrics.Namespace failed "metricname"`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	require.NoError(t, Default().Validate())
}

func TestLogger(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		level, format string
		enabled       zapcore.Level
		disabled      zapcore.Level
	}{
		{"debug", "json", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", "console", zapcore.WarnLevel, zapcore.InfoLevel},
		{"", "console", zapcore.InfoLevel, zapcore.DebugLevel},
	} {
		cfg := Default()
		cfg.Log.Level, cfg.Log.Format = tt.level, tt.format
		l, err := cfg.Logger()
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tt.enabled))
		assert.False(t, l.Core().Enabled(tt.disabled))
	}
	assert.NotEmpty(t, Default().Fields())
}
