package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "hilirisasi/internal/errors"
)

// EnvPrefix namespaces every environment override (HILIR_SERVER_PORT, ...).
const EnvPrefix = "HILIR"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Watcher   WatcherConfig   `yaml:"watcher" envconfig:"WATCHER"`

	Datasets []DatasetConfig   `yaml:"datasets" ignored:"true" validate:"dive"`
	Layouts  map[string]Layout `yaml:"layouts" ignored:"true"`

	// file is the config file the values were read from, if any.
	file string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, which defaults to the config file's directory or
// the working directory.
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// TelemetryConfig controls OpenTelemetry setup
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// WatcherConfig controls reloading of changed source files
type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"ENABLED"`
	Debounce time.Duration `yaml:"debounce" envconfig:"DEBOUNCE" validate:"gte=0"`
}

// DatasetConfig binds a dataset name to a spreadsheet and a layout.
type DatasetConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Path   string `yaml:"path" validate:"required"`
	Layout string `yaml:"layout" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from the first config file found in the usual
// locations and applies HILIR_* environment overrides.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile reads the given YAML file (skipped when path is empty) over the
// defaults, then applies environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apierrors.NewConfigError(fmt.Sprintf("failed to load config file %s", path), err)
		}
	}

	// Env takes precedence over the file; unset variables leave values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile decodes YAML on top of cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	cfg.file = abs
	return nil
}

// File returns the config file the configuration was read from.
func (c *Config) File() string { return c.file }

func (c *Config) resolvePaths() error {
	base := c.Paths.BaseDir
	if base == "" {
		if c.file != "" {
			base = filepath.Dir(c.file)
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			base = wd
		}
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return err
	}
	c.Paths.BaseDir = base

	c.Paths.DataDir = resolveAgainst(base, c.Paths.DataDir)
	c.Paths.ExportDir = resolveAgainst(base, c.Paths.ExportDir)
	c.Paths.LogsDir = resolveAgainst(base, c.Paths.LogsDir)
	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, filepath.Base(c.Logging.FilePath))
	}

	for i := range c.Datasets {
		c.Datasets[i].Path = resolveAgainst(c.Paths.DataDir, c.Datasets[i].Path)
	}
	return nil
}

func resolveAgainst(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks struct constraints, dataset uniqueness and that every
// dataset names a known layout.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Datasets))
	for _, ds := range c.Datasets {
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("duplicate dataset %q", ds.Name)
		}
		seen[ds.Name] = struct{}{}

		if _, err := c.Layout(ds.Layout); err != nil {
			return fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
	}
	return nil
}

// Dataset returns the named dataset configuration.
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	i := slices.IndexFunc(c.Datasets, func(ds DatasetConfig) bool { return ds.Name == name })
	if i < 0 {
		return DatasetConfig{}, false
	}
	return c.Datasets[i], true
}

// LayoutNames lists the built-in and configured layout names, sorted.
func (c *Config) LayoutNames() []string {
	names := make([]string, 0, len(c.Layouts)+2)
	for name := range BuiltinLayouts() {
		names = append(names, name)
	}
	for name := range c.Layouts {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Layout resolves a layout name against the built-ins merged with any
// overrides from the config file.
func (c *Config) Layout(name string) (Layout, error) {
	base, builtin := BuiltinLayouts()[name]
	override, overridden := c.Layouts[name]

	var l Layout
	switch {
	case builtin && overridden:
		l = MergeLayout(base, override)
	case builtin:
		l = base
	case overridden:
		// A new layout may extend a built-in through its "layout" field.
		if parent, ok := BuiltinLayouts()[override.Name]; ok {
			l = MergeLayout(parent, override)
		} else {
			l = override
		}
	default:
		return Layout{}, apierrors.NewConfigError(fmt.Sprintf("unknown layout %q", name), ErrUnknownLayout)
	}
	l.Name = name

	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %q: %w", name, err)
	}
	return l, nil
}

// findConfigFile returns the first config file found, or "" for env-only.
func findConfigFile() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"hilirisasi.yaml",
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: "app.log",
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir,
			ExportDir: DefaultExportDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: DefaultWatchDebounce,
		},
	}
}
