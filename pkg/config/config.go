package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys read by facade.FromConfig and the CLI.
const (
	KeyBaseURL         = "facade.base_url"
	KeyTimeout         = "facade.timeout"
	KeyWithCredentials = "facade.with_credentials"
	KeyUserAgent       = "facade.user_agent"
	KeyRequestIDHeader = "facade.request_id_header"
	KeyToken           = "facade.token"
	KeyLogLevel        = "log.level"
	KeyLogEncoding     = "log.encoding"
	KeyOTelEndpoint    = "otel.endpoint"
	KeyServiceName     = "otel.service_name"
)

// Config is the wrapper around viper with extra helpers.
type Config struct {
	*viper.Viper

	sensitiveKeys map[string]struct{}
	onChange      func()
	fileSet       bool
}

// Option is a functional option for New.
type Option func(*Config) error

// New creates a Config instance. Use options to customize behavior.
// Example:
//
//	cfg, err := config.New(
//	  config.WithDefaults(map[string]any{config.KeyTimeout: "3s"}),
//	  config.WithFile("reqfacade.yaml"),
//	  config.WithEnv("REQFACADE"),
//	  config.WithPFlags(flags),
//	)
func New(opts ...Option) (*Config, error) {
	cfg := &Config{
		Viper:         viper.New(),
		sensitiveKeys: map[string]struct{}{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("config: applying option failed: %w", err)
		}
	}

	if cfg.fileSet {
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", cfg.ConfigFileUsed(), err)
		}
	}

	return cfg, nil
}

/* ---------------------------
   Options
----------------------------*/

// WithDefaults sets default values (applied first)
func WithDefaults(defaults map[string]interface{}) Option {
	return func(c *Config) error {
		for k, v := range defaults {
			c.SetDefault(k, v)
		}
		return nil
	}
}

// WithFile sets an exact config file (absolute or relative).
// An empty path is ignored so callers can pass an optional flag value through.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		c.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			c.SetConfigType(ext)
		}
		c.fileSet = true
		return nil
	}
}

// WithEnv enables environment variable overrides.
// prefix = "REQFACADE" means REQFACADE_FACADE_BASE_URL overrides facade.base_url.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		if prefix != "" {
			c.SetEnvPrefix(prefix)
		}
		c.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		c.AutomaticEnv()
		return nil
	}
}

// WithPFlags binds flags to config keys. keys maps flag name -> config key;
// flags without an entry are bound under their own name.
func WithPFlags(flags *pflag.FlagSet, keys map[string]string) Option {
	return func(c *Config) error {
		if flags == nil {
			flags = pflag.CommandLine
		}
		var errs []error
		flags.VisitAll(func(f *pflag.Flag) {
			key := f.Name
			if mapped, ok := keys[f.Name]; ok {
				key = mapped
			}
			errs = append(errs, c.BindPFlag(key, f))
		})
		return errors.Join(errs...)
	}
}

// WithWatch enables hot-reload. onChange will be called after a successful reload.
func WithWatch(onChange func()) Option {
	return func(c *Config) error {
		c.onChange = onChange
		c.OnConfigChange(func(e fsnotify.Event) {
			if c.onChange != nil {
				c.onChange()
			}
		})
		c.WatchConfig()
		return nil
	}
}

// WithSensitiveKeys registers keys which should be redacted when printing/logging.
func WithSensitiveKeys(keys ...string) Option {
	return func(c *Config) error {
		for _, k := range keys {
			c.sensitiveKeys[strings.ToLower(k)] = struct{}{}
		}
		return nil
	}
}

/* ---------------------------
   Typed getters with defaults
----------------------------*/

// GetStringD returns string or def
func (c *Config) GetStringD(key, def string) string {
	if val := c.GetString(key); val != "" {
		return val
	}
	return def
}

// GetBoolD returns bool or def
func (c *Config) GetBoolD(key string, def bool) bool {
	if c.IsSet(key) {
		return c.GetBool(key)
	}
	return def
}

// GetDurationD returns time.Duration or def. Bare integers are read as
// milliseconds so "3000" and "3s" mean the same thing.
func (c *Config) GetDurationD(key string, def time.Duration) time.Duration {
	if !c.IsSet(key) {
		return def
	}
	switch v := c.Get(key).(type) {
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	case string:
		if v == "" {
			return def
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if ms := c.GetInt64(key); ms != 0 || v == "0" {
			return time.Duration(ms) * time.Millisecond
		}
		return def
	default:
		return c.GetDuration(key)
	}
}

/* ---------------------------
   Validation & Utilities
----------------------------*/

// ValidateRequired ensures keys exist and are non-empty.
func (c *Config) ValidateRequired(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !c.IsSet(k) || c.GetString(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %v", strings.Join(missing, ", "))
	}
	return nil
}

// MaskedSettings returns the flattened settings with sensitive keys redacted.
func (c *Config) MaskedSettings() map[string]interface{} {
	redacted := map[string]interface{}{}
	for _, k := range c.AllKeys() {
		if _, ok := c.sensitiveKeys[k]; ok {
			redacted[k] = "***REDACTED***"
			continue
		}
		redacted[k] = c.Get(k)
	}
	return redacted
}
