// Package projectconfig provides the Config struct and loader for
// .benchdash.yaml configuration files, environment overrides and flags.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mlbench/benchdash/internal/validation"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Load.
const FileName = ".benchdash.yaml"

// EnvPrefix prefixes every environment override, e.g. BENCHDASH_SERVER_PORT.
const EnvPrefix = "BENCHDASH"

// Default values for configuration. These are the single source of
// truth: New() and the viper defaults reference them.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8000
	DefaultWorkers           = 4
	DefaultReadHeaderTimeout = 10 * time.Second

	DefaultTTLMinutes = 60

	DefaultSourceKind   = "hub"
	DefaultBaseURL      = "https://huggingface.co/api"
	DefaultFetchLimit   = 30
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 30 * time.Second

	DefaultTopModels             = 5
	DefaultLeaderboardSize       = 20
	DefaultMinLeaderboardEntries = 1
	DefaultGranularity           = "month"
	DefaultNotableThreshold      = 0.7

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultSOTATables are the curated tables read when source.sota_url is set.
var DefaultSOTATables = []string{"glue", "imagenet", "squad", "wmt"}

// DefaultTasks are the pipeline tags fetched from the hub when none are configured.
var DefaultTasks = []string{
	"text-classification",
	"image-classification",
	"text-generation",
	"question-answering",
	"token-classification",
	"translation",
	"summarization",
	"object-detection",
	"automatic-speech-recognition",
}

// DefaultAllowedOrigins are the CORS origins of the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Source kinds.
const (
	SourceHub  = "hub"
	SourceFile = "file"
	SourceBlob = "blob"
)

// Duration is a time.Duration that reads and writes as "30s" in YAML and
// environment values.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string   `yaml:"host" mapstructure:"host"`
	Port              int      `yaml:"port" mapstructure:"port"`
	Workers           int      `yaml:"workers" mapstructure:"workers"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL is the cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// BlobConfig locates a snapshot blob in Azure Storage.
type BlobConfig struct {
	AccountURL string `yaml:"account_url,omitempty" mapstructure:"account_url"`
	Container  string `yaml:"container,omitempty" mapstructure:"container"`
	Name       string `yaml:"name,omitempty" mapstructure:"name"`
}

// SourceConfig selects and configures the upstream record provider.
type SourceConfig struct {
	Kind         string     `yaml:"kind" mapstructure:"kind"`
	BaseURL      string     `yaml:"base_url" mapstructure:"base_url"`
	FetchLimit   int        `yaml:"fetch_limit" mapstructure:"fetch_limit"`
	Tasks        []string   `yaml:"tasks" mapstructure:"tasks"`
	Concurrency  int        `yaml:"concurrency" mapstructure:"concurrency"`
	FetchTimeout Duration   `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	Path         string     `yaml:"path,omitempty" mapstructure:"path"`
	Blob         BlobConfig `yaml:"blob,omitempty" mapstructure:"blob"`
	// SOTAURL enables the curated state-of-the-art tables, merged after the
	// hub listings. Empty disables them.
	SOTAURL    string   `yaml:"sota_url,omitempty" mapstructure:"sota_url"`
	SOTATables []string `yaml:"sota_tables,omitempty" mapstructure:"sota_tables"`
}

// AggregationConfig tunes the derived views.
type AggregationConfig struct {
	TopModels             int     `yaml:"top_models" mapstructure:"top_models"`
	LeaderboardSize       int     `yaml:"leaderboard_size" mapstructure:"leaderboard_size"`
	MinLeaderboardEntries int     `yaml:"min_leaderboard_entries" mapstructure:"min_leaderboard_entries"`
	Granularity           string  `yaml:"granularity" mapstructure:"granularity"`
	NotableThreshold      float64 `yaml:"notable_threshold" mapstructure:"notable_threshold"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Config is the top-level configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Source      SourceConfig      `yaml:"source" mapstructure:"source"`
	Aggregation AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`

	// File is the configuration file that was read, empty when none was found.
	File string `yaml:"-" mapstructure:"-"`
	// SourcePathFromFile reports that Source.Path was taken from File and not
	// from an environment variable or flag.
	SourcePathFromFile bool `yaml:"-" mapstructure:"-"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			Workers:           DefaultWorkers,
			AllowedOrigins:    append([]string(nil), DefaultAllowedOrigins...),
			ReadHeaderTimeout: Duration(DefaultReadHeaderTimeout),
		},
		Cache: CacheConfig{TTLMinutes: DefaultTTLMinutes},
		Source: SourceConfig{
			Kind:         DefaultSourceKind,
			BaseURL:      DefaultBaseURL,
			FetchLimit:   DefaultFetchLimit,
			Tasks:        append([]string(nil), DefaultTasks...),
			Concurrency:  DefaultConcurrency,
			FetchTimeout: Duration(DefaultFetchTimeout),
			SOTATables:   append([]string(nil), DefaultSOTATables...),
		},
		Aggregation: AggregationConfig{
			TopModels:             DefaultTopModels,
			LeaderboardSize:       DefaultLeaderboardSize,
			MinLeaderboardEntries: DefaultMinLeaderboardEntries,
			Granularity:           DefaultGranularity,
			NotableThreshold:      DefaultNotableThreshold,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// LoadOption customizes Load.
type LoadOption func(*loader)

type loader struct {
	file  string
	flags map[string]*pflag.Flag
}

// overridden reports whether key was set by an environment variable or an
// explicitly changed flag.
func (l *loader) overridden(key string) bool {
	if f, ok := l.flags[key]; ok && f.Changed {
		return true
	}
	// viper ignores empty variables, so they do not count either.
	envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if os.Getenv(envKey) != "" {
		return true
	}
	legacy, ok := legacyEnv[key]
	return ok && os.Getenv(legacy) != ""
}

// WithFile reads the given file instead of searching for .benchdash.yaml.
func WithFile(path string) LoadOption {
	return func(l *loader) { l.file = path }
}

// WithFlag binds a command-line flag to a configuration key such as
// "server.port". Flags only override when they were set explicitly.
func WithFlag(key string, f *pflag.Flag) LoadOption {
	return func(l *loader) {
		if f != nil {
			l.flags[key] = f
		}
	}
}

// legacyEnv lists unprefixed environment variables honoured for
// compatibility with existing deployments.
var legacyEnv = map[string]string{
	"server.host":        "HOST",
	"server.port":        "PORT",
	"server.workers":     "WORKERS",
	"cache.ttl_minutes":  "CACHE_TTL_MINUTES",
	"source.fetch_limit": "FETCH_LIMIT",
}

// Load builds the configuration from defaults, the first .benchdash.yaml
// found walking up from startDir (max 10 levels), environment variables and
// bound flags, in increasing precedence. A missing file is not an error.
// The file is checked against the configuration schema before it is read.
func Load(startDir string, opts ...LoadOption) (*Config, error) {
	l := &loader{flags: map[string]*pflag.Flag{}}
	for _, o := range opts {
		o(l)
	}

	v := viper.New()
	setDefaults(v)

	path := l.file
	if path == "" {
		found, err := findConfigFile(startDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", FileName, err)
		}
		path = found
	}
	if path != "" {
		problems, err := validation.ValidateConfigFile(path)
		if err != nil {
			return nil, err
		}
		if len(problems) > 0 {
			return nil, &FileError{Path: path, Problems: problems}
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	for key, f := range l.flags {
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("binding flag --%s: %w", f.Name, err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.File = path
	cfg.SourcePathFromFile = path != "" && v.InConfig("source.path") && !l.overridden("source.path")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.workers", d.Server.Workers)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout.Std().String())
	v.SetDefault("cache.ttl_minutes", d.Cache.TTLMinutes)
	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.base_url", d.Source.BaseURL)
	v.SetDefault("source.fetch_limit", d.Source.FetchLimit)
	v.SetDefault("source.tasks", d.Source.Tasks)
	v.SetDefault("source.concurrency", d.Source.Concurrency)
	v.SetDefault("source.fetch_timeout", d.Source.FetchTimeout.Std().String())
	v.SetDefault("source.path", "")
	v.SetDefault("source.sota_url", "")
	v.SetDefault("source.sota_tables", d.Source.SOTATables)
	v.SetDefault("source.blob.account_url", "")
	v.SetDefault("source.blob.container", "")
	v.SetDefault("source.blob.name", "")
	v.SetDefault("aggregation.top_models", d.Aggregation.TopModels)
	v.SetDefault("aggregation.leaderboard_size", d.Aggregation.LeaderboardSize)
	v.SetDefault("aggregation.min_leaderboard_entries", d.Aggregation.MinLeaderboardEntries)
	v.SetDefault("aggregation.granularity", d.Aggregation.Granularity)
	v.SetDefault("aggregation.notable_threshold", d.Aggregation.NotableThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// findConfigFile walks up from dir looking for .benchdash.yaml (max 10
// levels) and returns its path. Returns os.ErrNotExist if none is found and
// propagates real I/O errors (e.g. permission denied).
func findConfigFile(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range 10 {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// FileError reports schema violations in a configuration file.
type FileError struct {
	Path     string
	Problems []string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("invalid %s:\n  %s", e.Path, strings.Join(e.Problems, "\n  "))
}

// Validate checks cross-field constraints the schema cannot express and
// values that arrived through environment variables or flags.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Workers < 1 {
		errs = append(errs, fmt.Errorf("server.workers must be at least 1"))
	}
	if c.Cache.TTLMinutes < 1 {
		errs = append(errs, fmt.Errorf("cache.ttl_minutes must be at least 1"))
	}
	switch c.Source.Kind {
	case SourceHub:
		if c.Source.BaseURL == "" {
			errs = append(errs, errors.New("source.base_url is required for the hub source"))
		}
		if c.Source.FetchLimit < 1 {
			errs = append(errs, errors.New("source.fetch_limit must be at least 1"))
		}
	case SourceFile:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for the file source"))
		}
	case SourceBlob:
		b := c.Source.Blob
		if b.AccountURL == "" || b.Container == "" || b.Name == "" {
			errs = append(errs, errors.New("source.blob.account_url, container and name are required for the blob source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}
	if c.Source.Concurrency < 1 {
		errs = append(errs, errors.New("source.concurrency must be at least 1"))
	}
	switch c.Aggregation.Granularity {
	case "month", "quarter", "year":
	default:
		errs = append(errs, fmt.Errorf("unknown aggregation.granularity %q", c.Aggregation.Granularity))
	}
	if c.Aggregation.NotableThreshold <= 0 || c.Aggregation.NotableThreshold > 1 {
		errs = append(errs, errors.New("aggregation.notable_threshold must be within (0, 1]"))
	}
	if c.Aggregation.TopModels < 1 {
		errs = append(errs, errors.New("aggregation.top_models must be at least 1"))
	}
	if c.Aggregation.LeaderboardSize < 1 || c.Aggregation.MinLeaderboardEntries < 1 {
		errs = append(errs, errors.New("aggregation leaderboard sizes must be at least 1"))
	}
	return errors.Join(errs...)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
