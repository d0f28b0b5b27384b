// Package config loads the settings of the scholar command from a YAML
// file overlaid by SCHOLAR_* environment variables.
//
//	dialect: postgres
//	dsn: postgres://scholar@localhost/scholar?sslmode=disable
//	tx:
//	  timeout: 5s
//	  maxWait: 2s
//	  isolation: serializable
//	log:
//	  level: info
//	metrics:
//	  namespace: scholar
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/engine"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "SCHOLAR_"

// Config holds the settings of one store connection.
type Config struct {
	Dialect string `yaml:"dialect" validate:"required,oneof=sqlite postgres mysql"`
	DSN     string `yaml:"dsn" validate:"required"`
	// Schema is the path of a schema description. Empty selects the
	// built-in school schema.
	Schema  string        `yaml:"schema"`
	Tx      TxConfig      `yaml:"tx"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// TxConfig holds the transaction defaults.
type TxConfig struct {
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxWait   time.Duration `yaml:"maxWait" validate:"gte=0"`
	Isolation string        `yaml:"isolation" validate:"omitempty,oneof=default read_uncommitted read_committed repeatable_read serializable"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	// Statements logs every statement at debug level.
	Statements bool `yaml:"statements"`
}

// MetricsConfig holds the driver metrics settings.
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Namespace     string        `yaml:"namespace" validate:"omitempty,metricname"`
	SlowThreshold time.Duration `yaml:"slowThreshold" validate:"gte=0"`
}

// Default returns the settings used for keys absent from every source.
func Default() *Config {
	return &Config{
		Dialect: dialect.SQLite,
		DSN:     "file:scholar.db?_pragma=foreign_keys(1)",
		Tx: TxConfig{
			Timeout: engine.DefaultTxOptions.Timeout,
			MaxWait: engine.DefaultTxOptions.MaxWait,
		},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Namespace: "scholar", SlowThreshold: time.Second},
	}
}

type options struct {
	envFiles []string
	lookup   func(string) (string, bool)
}

// Option configures Load.
type Option func(*options)

// WithEnvFile reads variables from dotenv files. Variables of the process
// environment take precedence; missing files are ignored.
func WithEnvFile(paths ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, paths...)
	}
}

// WithLookup replaces the process environment lookup.
func WithLookup(f func(string) (string, bool)) Option {
	return func(o *options) {
		o.lookup = f
	}
}

// Load reads the file at path, when not empty, applies the environment
// overrides and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	o := &options{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(o)
	}
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(buf))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	lookup, err := o.envLookup()
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envLookup returns the lookup of the process environment backed by the
// dotenv files.
func (o *options) envLookup() (func(string) (string, bool), error) {
	if len(o.envFiles) == 0 {
		return o.lookup, nil
	}
	file := make(map[string]string)
	for _, path := range o.envFiles {
		vars, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for k, v := range vars {
			if _, ok := file[k]; !ok {
				file[k] = v
			}
		}
	}
	return func(key string) (string, bool) {
		if v, ok := o.lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}
	str("DIALECT", &c.Dialect)
	str("DSN", &c.DSN)
	str("SCHEMA", &c.Schema)
	str("TX_ISOLATION", &c.Tx.Isolation)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_NAMESPACE", &c.Metrics.Namespace)
	return errors.Join(
		dur("TX_TIMEOUT", &c.Tx.Timeout),
		dur("TX_MAX_WAIT", &c.Tx.MaxWait),
		dur("METRICS_SLOW_THRESHOLD", &c.Metrics.SlowThreshold),
		boolean("LOG_STATEMENTS", &c.Log.Statements),
		boolean("METRICS_ENABLED", &c.Metrics.Enabled),
	)
}

var (
	validate   = newValidator()
	metricName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("metricname", func(fl validator.FieldLevel) bool {
		return metricName.MatchString(fl.Field().String())
	})
	return v
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of [%s], got %q", fe.Namespace(), fe.Param(), fe.Value())
		default:
			msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		}
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                 sql.LevelDefault,
	"default":          sql.LevelDefault,
	"read_uncommitted": sql.LevelReadUncommitted,
	"read_committed":   sql.LevelReadCommitted,
	"repeatable_read":  sql.LevelRepeatableRead,
	"serializable":     sql.LevelSerializable,
}

// TxOptions returns the transaction defaults of the engine client.
func (c *Config) TxOptions() engine.TxOptions {
	return engine.TxOptions{
		Isolation: isolationLevels[c.Tx.Isolation],
		Timeout:   c.Tx.Timeout,
		MaxWait:   c.Tx.MaxWait,
	}
}

// Logger builds the logger described by the settings.
func (c *Config) Logger() (*zap.Logger, error) {
	name := c.Log.Level
	if name == "" {
		name = "info"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var zc zap.Config
	if c.Log.Format == "json" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(zap.Fields(zap.String("dialect", c.Dialect)))
}

// Fields returns the settings as log fields, without the DSN.
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("dialect", c.Dialect),
		zap.String("schema", c.Schema),
		zap.Duration("tx_timeout", c.Tx.Timeout),
		zap.Duration("tx_max_wait", c.Tx.MaxWait),
		zap.Bool("metrics", c.Metrics.Enabled),
	}
}
