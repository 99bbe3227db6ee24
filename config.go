package smartsheet

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"golang.org/x/time/rate"
)

// envPrefix prefixes environment variables that override file settings,
// e.g. SMARTSHEET_CLIENT_ID or SMARTSHEET_RETRY_MAX_RETRIES.
const envPrefix = "SMARTSHEET_"

// Config is the file/environment configuration for the SDK.
type Config struct {
	ClientID         string        `koanf:"client_id"`
	ClientSecret     string        `koanf:"client_secret"`
	RedirectURL      string        `koanf:"redirect_url"`
	AuthorizationURL string        `koanf:"authorization_url"`
	TokenURL         string        `koanf:"token_url"`
	BaseURL          string        `koanf:"base_url"`
	AccessToken      string        `koanf:"access_token"`
	Scopes           []string      `koanf:"scopes"`
	Timeout          time.Duration `koanf:"timeout"`
	RateLimit        float64       `koanf:"rate_limit"` // requests per second, 0 disables pacing
	RateBurst        int           `koanf:"rate_burst"`
	LogLevel         string        `koanf:"log_level"`
	Retry            RetrySettings `koanf:"retry"`
}

// RetrySettings is the file form of RetryConfig.
type RetrySettings struct {
	MaxRetries     int           `koanf:"max_retries"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	MaxElapsed     time.Duration `koanf:"max_elapsed"`
	Multiplier     float64       `koanf:"multiplier"`
	Jitter         time.Duration `koanf:"jitter"`
	TransientCodes []int         `koanf:"transient_codes"`
}

// configKeys lists every key that can be overridden from the environment.
var configKeys = []string{
	"client_id", "client_secret", "redirect_url", "authorization_url", "token_url",
	"base_url", "access_token", "scopes", "timeout", "rate_limit", "rate_burst", "log_level",
	"retry.max_retries", "retry.initial_backoff", "retry.max_backoff", "retry.max_elapsed",
	"retry.multiplier", "retry.jitter",
}

func configDefaults() map[string]any {
	d := DefaultRetryConfig()
	return map[string]any{
		"authorization_url":     DefaultAuthorizationURL,
		"token_url":             DefaultTokenURL,
		"base_url":              DefaultBaseURL,
		"timeout":               DefaultTimeout.String(),
		"log_level":             "info",
		"rate_burst":            1,
		"retry.max_retries":     d.MaxRetries,
		"retry.initial_backoff": d.InitialBackoff.String(),
		"retry.max_backoff":     d.MaxBackoff.String(),
		"retry.max_elapsed":     d.MaxElapsed.String(),
		"retry.multiplier":      d.Multiplier,
		"retry.jitter":          d.Jitter.String(),
	}
}

// yamlParser is a koanf.Parser backed by goccy/go-yaml.
type yamlParser struct{}

func (yamlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (yamlParser) Marshal(o map[string]interface{}) ([]byte, error) {
	return yaml.Marshal(o)
}

// LoadConfig reads configuration from path (JSON, or YAML for .yaml/.yml),
// applies defaults and SMARTSHEET_* environment overrides. An empty path
// loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	var data []byte
	format := "json"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		}
	}
	return ParseConfig(data, format)
}

// ParseConfig parses data in the given format ("json" or "yaml") on top of
// the defaults, then applies environment overrides.
func ParseConfig(data []byte, format string) (*Config, error) {
	k := koanf.New(".")
	for key, val := range configDefaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if len(data) > 0 {
		var parser koanf.Parser
		switch format {
		case "json":
			parser = json.Parser()
		case "yaml", "yml":
			parser = yamlParser{}
		default:
			return nil, invalidArgument("unsupported config format %q", format)
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for _, key := range configKeys {
		env := envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v, ok := os.LookupEnv(env); ok {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", env, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// AccessScopes parses the configured scopes, falling back to DefaultScopes.
func (c *Config) AccessScopes() ([]AccessScope, error) {
	if len(c.Scopes) == 0 {
		return DefaultScopes(), nil
	}
	return ParseAccessScopes(strings.Join(c.Scopes, ","))
}

// RetryConfig returns the retry settings as a RetryConfig.
func (c *Config) RetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     c.Retry.MaxRetries,
		InitialBackoff: c.Retry.InitialBackoff,
		MaxBackoff:     c.Retry.MaxBackoff,
		MaxElapsed:     c.Retry.MaxElapsed,
		Multiplier:     c.Retry.Multiplier,
		Jitter:         c.Retry.Jitter,
	}
}

// RetryPolicy builds the configured retry policy.
func (c *Config) RetryPolicy(logger *slog.Logger) *RetryPolicy {
	opts := []RetryOption{WithRetryLogger(logger)}
	if len(c.Retry.TransientCodes) > 0 {
		opts = append(opts, WithTransientCodes(c.Retry.TransientCodes...))
	}
	return NewRetryPolicy(c.RetryConfig(), opts...)
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Transport builds an HTTPTransport with the configured timeout.
func (c *Config) Transport(logger *slog.Logger) *HTTPTransport {
	return NewHTTPTransport(WithTransportTimeout(c.Timeout), WithTransportLogger(logger))
}

// OAuthConfig returns the flow configuration using transport t.
func (c *Config) OAuthConfig(t Transport) OAuthConfig {
	return OAuthConfig{
		ClientID:         c.ClientID,
		ClientSecret:     c.ClientSecret,
		RedirectURL:      c.RedirectURL,
		AuthorizationURL: c.AuthorizationURL,
		TokenURL:         c.TokenURL,
		Transport:        t,
		Serializer:       NewJSONSerializer(),
	}
}

// ClientOptions returns the Client options implied by the configuration.
func (c *Config) ClientOptions(logger *slog.Logger) []Option {
	opts := []Option{
		WithBaseURL(c.BaseURL),
		WithTransport(c.Transport(logger)),
		WithRetryPolicy(c.RetryPolicy(logger)),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(rate.Limit(c.RateLimit), burst))
	}
	return opts
}
