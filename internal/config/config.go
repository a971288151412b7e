package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Result policies accepted in executor.result_policy.
const (
	// ResultPolicyKeepAll keeps every result a task reports, empty strings included.
	ResultPolicyKeepAll = "keep_all"
	// ResultPolicyDropEmpty additionally drops empty results.
	ResultPolicyDropEmpty = "drop_empty"
)

// Defaults applied by New before the config file and environment are read.
const (
	DefaultBatchSize     = 5
	DefaultOutputFormat  = "table"
	DefaultPrecision     = 2
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	configFileName       = "config.yaml"
	outputTypeFile       = "file"
	configFilePermission = 0600
)

// Environment variables that override the config file.
const (
	EnvHome         = "BATCHRUN_HOME"
	EnvBatchSize    = "BATCHRUN_BATCH_SIZE"
	EnvResultPolicy = "BATCHRUN_RESULT_POLICY"
	EnvLogLevel     = "BATCHRUN_LOG_LEVEL"
	EnvLogFormat    = "BATCHRUN_LOG_FORMAT"
	EnvOutputFormat = "BATCHRUN_OUTPUT_FORMAT"
)

// Config errors.
var (
	ErrInvalidKey   = errors.New("invalid config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config is the batchrun configuration file.
type Config struct {
	Executor ExecutorConfig `yaml:"executor"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	// path is where the config was loaded from and where Save writes.
	path string
}

// ExecutorConfig holds defaults for batch execution.
type ExecutorConfig struct {
	BatchSize    int    `yaml:"batch_size"    validate:"min=1,max=10000"`
	ResultPolicy string `yaml:"result_policy" validate:"oneof=keep_all drop_empty"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=table json plain"`
	Precision     int    `yaml:"precision"      validate:"min=0,max=6"`
}

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level  string      `yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string      `yaml:"format" validate:"oneof=json console"`
	File   string      `yaml:"file,omitempty"`
	Audit  AuditConfig `yaml:"audit,omitempty"`
}

// AuditConfig controls the command audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file,omitempty"`
}

//nolint:gochecknoglobals // validator caches struct metadata; one instance is shared.
var validate = validator.New()

// Default returns a Config populated with built-in defaults only.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			BatchSize:    DefaultBatchSize,
			ResultPolicy: ResultPolicyKeepAll,
		},
		Output: OutputConfig{
			DefaultFormat: DefaultOutputFormat,
			Precision:     DefaultPrecision,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// New returns the defaults overlaid with the config file in the config
// directory (if present) and then with environment variables. Problems reading
// the file are ignored so that a broken file never blocks the CLI; use Load to
// surface them.
func New() *Config {
	cfg := Default()
	if dir, err := GetConfigDir(); err == nil {
		cfg.path = filepath.Join(dir, configFileName)
		_ = cfg.loadFile(cfg.path)
	}
	cfg.applyEnv()
	return cfg
}

// Load reads the config file at path over the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the config file at path over the defaults without environment
// overrides. Use it for configs that are saved back to disk.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment overrides. Unparseable numeric values are ignored.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Executor.BatchSize = n
		}
	}
	if v := os.Getenv(EnvResultPolicy); v != "" {
		c.Executor.ResultPolicy = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		c.Output.DefaultFormat = v
	}
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// SetPath changes where Save writes.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Save writes the config as YAML to its path, creating parent directories.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.WriteFile(c.path, data, configFilePermission); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.path, err)
	}
	return nil
}

// Get returns the value for a dotted key such as "executor.batch_size".
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "executor.batch_size":
		return strconv.Itoa(c.Executor.BatchSize), nil
	case "executor.result_policy":
		return c.Executor.ResultPolicy, nil
	case "output.default_format":
		return c.Output.DefaultFormat, nil
	case "output.precision":
		return strconv.Itoa(c.Output.Precision), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "logging.file":
		return c.Logging.File, nil
	case "logging.audit.enabled":
		return strconv.FormatBool(c.Logging.Audit.Enabled), nil
	case "logging.audit.file":
		return c.Logging.Audit.File, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
}

// Set assigns value to a dotted key and validates the result. The config is
// left unchanged when validation fails.
func (c *Config) Set(key, value string) error {
	updated := *c
	if err := updated.assign(key, value); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = updated
	return nil
}

func (c *Config) assign(key, value string) error {
	switch key {
	case "executor.batch_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %q", ErrInvalidValue, key, value)
		}
		c.Executor.BatchSize = n
	case "executor.result_policy":
		c.Executor.ResultPolicy = value
	case "output.default_format":
		c.Output.DefaultFormat = value
	case "output.precision":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %q", ErrInvalidValue, key, value)
		}
		c.Output.Precision = n
	case "logging.level":
		c.Logging.Level = strings.ToLower(value)
	case "logging.format":
		c.Logging.Format = value
	case "logging.file":
		c.Logging.File = value
	case "logging.audit.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean: %q", ErrInvalidValue, key, value)
		}
		c.Logging.Audit.Enabled = b
	case "logging.audit.file":
		c.Logging.Audit.File = value
	default:
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return nil
}

// Keys returns every settable dotted key in sorted order.
func Keys() []string {
	keys := []string{
		"executor.batch_size",
		"executor.result_policy",
		"output.default_format",
		"output.precision",
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.audit.enabled",
		"logging.audit.file",
	}
	sort.Strings(keys)
	return keys
}

// List returns every key with its current value.
func (c *Config) List() map[string]string {
	out := make(map[string]string, len(Keys()))
	for _, key := range Keys() {
		v, _ := c.Get(key)
		out[key] = v
	}
	return out
}
