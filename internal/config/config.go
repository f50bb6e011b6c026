// Package config loads avrogen.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/reoring/avrogen/internal/tracing"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "avrogen.yaml"

// Config is the root configuration.
type Config struct {
	Dependencies DependenciesConfig `yaml:"dependencies"`
	Groups       []GroupConfig      `yaml:"groups"`
	// ImportRoots are searched for IDL imports after the importing
	// document's directory.
	ImportRoots []string `yaml:"import_roots"`
	Concurrency int      `yaml:"concurrency"`
	// Emit toggles Go code generation; protocols are written either way.
	Emit    *bool          `yaml:"emit"`
	Logging LoggingConfig  `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Tracing tracing.Config `yaml:"tracing"`

	// BaseDir anchors relative paths; it is the directory of the loaded file.
	BaseDir string `yaml:"-"`
}

// DependenciesConfig describes the external document set.
type DependenciesConfig struct {
	Roots       []string `yaml:"roots"`
	ProtocolDir string   `yaml:"protocol_dir"`
}

// GroupConfig describes one compilation group.
type GroupConfig struct {
	Name        string `yaml:"name"`
	SourceDir   string `yaml:"source_dir"`
	ProtocolDir string `yaml:"protocol_dir"`
	OutputDir   string `yaml:"output_dir"`
	Package     string `yaml:"package"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus text exposition after
	// each run.
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used without a file: groups "main" and
// "test" under src/<group>/avro.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads a YAML configuration file. Environment variables are expanded;
// a .env file next to the configuration is loaded first when present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	dir := filepath.Dir(path)
	if env := filepath.Join(dir, ".env"); fileExists(env) {
		if err := godotenv.Load(env); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", env, err)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseDir = dir
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = "."
	}
	if len(c.Groups) == 0 {
		c.Groups = []GroupConfig{{Name: "main"}, {Name: "test"}}
	}
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.SourceDir == "" {
			g.SourceDir = filepath.Join("src", g.Name, "avro")
		}
		if g.ProtocolDir == "" {
			g.ProtocolDir = filepath.Join("build", "generated-"+g.Name+"-avro-avpr")
		}
		if g.OutputDir == "" {
			g.OutputDir = filepath.Join("build", "generated-"+g.Name+"-avro-go")
		}
	}
	if c.Dependencies.ProtocolDir == "" {
		c.Dependencies.ProtocolDir = filepath.Join("build", "generated-deps-avro-avpr")
	}
	if c.Emit == nil {
		emit := true
		c.Emit = &emit
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	td := tracing.DefaultConfig()
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = td.Exporter
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = td.OTLPEndpoint
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = td.SampleRate
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = td.ServiceName
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("groups[%d]: name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("groups[%d]: duplicate group %q", i, g.Name)
		}
		seen[g.Name] = true
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0,1], got %v", c.Tracing.SampleRate)
	}
	return nil
}

// Path resolves p against BaseDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// EmitEnabled reports whether Go bindings are generated.
func (c *Config) EmitEnabled() bool { return c.Emit == nil || *c.Emit }

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level: unsupported level %q", s)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
