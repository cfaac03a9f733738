package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ppiankov/docket/internal/model"
)

// Config is the complete docket configuration
type Config struct {
	Dataset     DatasetConfig     `yaml:"dataset" mapstructure:"dataset"`
	Roster      []string          `yaml:"roster" mapstructure:"roster" validate:"min=1,dive,required"`
	Integrity   IntegrityConfig   `yaml:"integrity" mapstructure:"integrity"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// DatasetConfig controls where and how the case dataset is loaded
type DatasetConfig struct {
	Path         string        `yaml:"path" mapstructure:"path" validate:"required"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	Cache        CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig controls caching of remotely fetched datasets
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// IntegrityConfig tunes the dataset audit
type IntegrityConfig struct {
	MinYear             int     `yaml:"min_year" mapstructure:"min_year"`
	MaxYear             int     `yaml:"max_year" mapstructure:"max_year" validate:"gtefield=MinYear"`
	CoverageWarnPercent float64 `yaml:"coverage_warn_percent" mapstructure:"coverage_warn_percent" validate:"gte=0,lte=100"`
	ExampleLimit        int     `yaml:"example_limit" mapstructure:"example_limit" validate:"gte=0"`
}

// ServerConfig controls the read-only HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	AllowedOrigins    []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers           int        `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	RequestsPerSecond float64    `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int        `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
	Hosts             []HostRate `yaml:"hosts,omitempty" mapstructure:"hosts" validate:"dive"`
}

// HostRate overrides the fetch rate for one dataset host. Host matches the
// URL host including any port, e.g. "raw.githubusercontent.com".
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host" validate:"required"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst,omitempty" mapstructure:"burst" validate:"gte=0"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "docket-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".docket", "cache")
	}

	return &Config{
		Dataset: DatasetConfig{
			Path:         "data/scData.json",
			Timeout:      30 * time.Second,
			UserAgent:    "Docket/0.1 (+https://github.com/ppiankov/docket)",
			MaxBodyBytes: 50_000_000,
			Cache: CacheConfig{
				Enabled:   true,
				Dir:       cacheDir,
				MemoryTTL: 10 * time.Minute,
				DiskTTL:   24 * time.Hour,
			},
		},
		Roster: model.DefaultRoster.Names(),
		Integrity: IntegrityConfig{
			MinYear:             2020,
			MaxYear:             2025,
			CoverageWarnPercent: 95,
			ExampleLimit:        3,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 20,
			Burst:             40,
			AllowedOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
			ShutdownTimeout:   10 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// SetDefaults registers every default with v so DOCKET_* environment
// variables can override keys that appear in no config file
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("dataset.path", d.Dataset.Path)
	v.SetDefault("dataset.timeout", d.Dataset.Timeout)
	v.SetDefault("dataset.user_agent", d.Dataset.UserAgent)
	v.SetDefault("dataset.max_body_bytes", d.Dataset.MaxBodyBytes)
	v.SetDefault("dataset.http_proxy", "")
	v.SetDefault("dataset.https_proxy", "")
	v.SetDefault("dataset.no_proxy", "")
	v.SetDefault("dataset.cache.enabled", d.Dataset.Cache.Enabled)
	v.SetDefault("dataset.cache.dir", d.Dataset.Cache.Dir)
	v.SetDefault("dataset.cache.memory_ttl", d.Dataset.Cache.MemoryTTL)
	v.SetDefault("dataset.cache.disk_ttl", d.Dataset.Cache.DiskTTL)
	v.SetDefault("roster", d.Roster)
	v.SetDefault("integrity.min_year", d.Integrity.MinYear)
	v.SetDefault("integrity.max_year", d.Integrity.MaxYear)
	v.SetDefault("integrity.coverage_warn_percent", d.Integrity.CoverageWarnPercent)
	v.SetDefault("integrity.example_limit", d.Integrity.ExampleLimit)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.requests_per_second", d.Server.RequestsPerSecond)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("concurrency.requests_per_second", d.Concurrency.RequestsPerSecond)
	v.SetDefault("concurrency.burst_size", d.Concurrency.BurstSize)
	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("output.include_footer", d.Output.IncludeFooter)
}

// Load overlays the values known to v (config file, env, bound flags) onto the defaults
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if v == nil {
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RosterValue returns the configured roster as a model.Roster
func (c *Config) RosterValue() model.Roster {
	return model.Roster(c.Roster)
}

var validate = validator.New()

// Validate checks the configuration for values the commands cannot work with
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", formatValidationError(err))
	}
	return nil
}

// formatValidationError turns validator errors into one readable message
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gt": ">", "gte": ">="}[e.Tag()], e.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, e.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(e.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
