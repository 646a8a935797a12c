package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/partition/internal/errors"
	"github.com/vango-dev/partition/pkg/part"
)

const (
	// ConfigName is the base name searched for when no path is given.
	ConfigName = "partition"

	// EnvPrefix prefixes environment overrides, e.g. PARTITION_DEVTOOLS_ADDR.
	EnvPrefix = "PARTITION"

	// EnvConfig names an explicit config file.
	EnvConfig = "PARTITION_CONFIG"

	// DefaultAddr is the default devtools listen address.
	DefaultAddr = "localhost:7070"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "partition"
)

// Config is the configuration of a partition process.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Devtools DevtoolsConfig `mapstructure:"devtools" yaml:"devtools"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`

	// Parts declares the top-level stateful parts of the store.
	Parts []PartSpec `mapstructure:"parts" yaml:"parts"`

	// configPath is where the config was loaded from.
	configPath string
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

// DevtoolsConfig controls the inspector server.
type DevtoolsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`

	// WriteTimeout bounds each websocket frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// MetricsConfig controls the Prometheus middleware.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled" yaml:"enabled"`
	Namespace string    `mapstructure:"namespace" yaml:"namespace"`
	Subsystem string    `mapstructure:"subsystem" yaml:"subsystem"`
	Buckets   []float64 `mapstructure:"buckets" yaml:"buckets,omitempty"`
}

// TracingConfig controls the OpenTelemetry middleware.
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	TracerName string `mapstructure:"tracer_name" yaml:"tracer_name"`
	Thunks     bool   `mapstructure:"thunks" yaml:"thunks"`
}

// PartSpec declares a stateful part. A spec with children becomes a composed
// part; otherwise it is a primitive holding Initial.
type PartSpec struct {
	Name     string     `mapstructure:"name" yaml:"name"`
	Initial  any        `mapstructure:"initial" yaml:"initial,omitempty"`
	Children []PartSpec `mapstructure:"children" yaml:"children,omitempty"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Devtools: DevtoolsConfig{
			Enabled:      true,
			Addr:         DefaultAddr,
			WriteTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Namespace: DefaultNamespace},
		Tracing: TracingConfig{TracerName: "partition"},
	}
}

func setDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("devtools.enabled", d.Devtools.Enabled)
	v.SetDefault("devtools.addr", d.Devtools.Addr)
	v.SetDefault("devtools.write_timeout", d.Devtools.WriteTimeout)
	v.SetDefault("devtools.allowed_origins", []string{})
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", "")
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.tracer_name", d.Tracing.TracerName)
	v.SetDefault("tracing.thunks", d.Tracing.Thunks)
}

// Load reads configuration from path, or from $PARTITION_CONFIG when path is
// empty, or from partition.{yaml,json,toml} in the working directory. A
// missing file is only an error when it was named explicitly. Environment
// variables prefixed with PARTITION_ override file values.
//
// Map keys inside Initial values are lowercased by the loader.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case stderrors.As(err, &notFound) && !explicit:
			// defaults and environment only
		case os.IsNotExist(err) || stderrors.As(err, &notFound):
			return nil, errors.New("P080").
				WithDetail("No config file at " + path).
				WithSuggestion("Create " + ConfigName + ".yaml or pass an existing file with --config")
		default:
			return nil, errors.New("P080").Wrap(err).
				WithDetail("Failed to parse " + v.ConfigFileUsed() + ": " + err.Error())
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("P080").Wrap(err).
			WithDetail("Failed to decode configuration: " + err.Error())
	}
	cfg.configPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to path. The format follows the file
// extension.
func (c *Config) SaveTo(path string) error {
	v := viper.New()
	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)
	v.Set("devtools.enabled", c.Devtools.Enabled)
	v.Set("devtools.addr", c.Devtools.Addr)
	v.Set("devtools.write_timeout", c.Devtools.WriteTimeout.String())
	v.Set("devtools.allowed_origins", c.Devtools.AllowedOrigins)
	v.Set("metrics.enabled", c.Metrics.Enabled)
	v.Set("metrics.namespace", c.Metrics.Namespace)
	v.Set("metrics.subsystem", c.Metrics.Subsystem)
	if len(c.Metrics.Buckets) > 0 {
		v.Set("metrics.buckets", c.Metrics.Buckets)
	}
	v.Set("tracing.enabled", c.Tracing.Enabled)
	v.Set("tracing.tracer_name", c.Tracing.TracerName)
	v.Set("tracing.thunks", c.Tracing.Thunks)
	v.Set("parts", specMaps(c.Parts))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New("P080").Wrap(err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.New("P080").Wrap(err).WithDetail("Failed to write " + path)
	}
	c.configPath = path
	return nil
}

func specMaps(specs []PartSpec) []map[string]any {
	out := make([]map[string]any, 0, len(specs))
	for _, s := range specs {
		m := map[string]any{"name": s.Name}
		if len(s.Children) > 0 {
			m["children"] = specMaps(s.Children)
		} else if s.Initial != nil {
			m["initial"] = s.Initial
		}
		out = append(out, m)
	}
	return out
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks settings that the loader cannot type-check.
func (c *Config) Validate() error {
	if _, err := c.Log.level(); err != nil {
		return errors.New("P080").
			WithDetail("Unknown log level " + fmt.Sprintf("%q", c.Log.Level)).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("P080").
			WithDetail(fmt.Sprintf("Unknown log format %q", c.Log.Format)).
			WithSuggestion("Use text or json")
	}
	if c.Devtools.Enabled && c.Devtools.Addr == "" {
		return errors.New("P080").WithDetail("devtools.addr is empty")
	}
	return validateSpecs(c.Parts, "parts")
}

func validateSpecs(specs []PartSpec, where string) error {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		at := fmt.Sprintf("%s[%d]", where, i)
		switch {
		case s.Name == "":
			return errors.New("P020").Wrap(part.ErrInvalidConfig).WithDetail(at + " has no name")
		case seen[s.Name]:
			return errors.New("P022").Wrap(part.ErrDuplicateName).WithDetail(fmt.Sprintf("%s repeats the name %q", at, s.Name))
		case len(s.Children) > 0 && s.Initial != nil:
			return errors.New("P020").Wrap(part.ErrInvalidConfig).
				WithDetail(fmt.Sprintf("%s (%s) sets both initial and children", at, s.Name)).
				WithSuggestion("Composed parts take their initial state from their children")
		}
		seen[s.Name] = true
		if err := validateSpecs(s.Children, at+".children"); err != nil {
			return err
		}
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// Handler builds the slog handler described by the config.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Build declares the configured parts on g and returns the top-level ones,
// ready to be partitioned.
func (c *Config) Build(g *part.Graph) ([]*part.Part, error) {
	if err := validateSpecs(c.Parts, "parts"); err != nil {
		return nil, err
	}
	return buildAll(g, c.Parts)
}

func buildAll(g *part.Graph, specs []PartSpec) ([]*part.Part, error) {
	parts := make([]*part.Part, 0, len(specs))
	for _, s := range specs {
		p, err := build(g, s)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func build(g *part.Graph, s PartSpec) (*part.Part, error) {
	if len(s.Children) == 0 {
		return g.New(part.Config{Kind: part.KindPrimitive, Name: s.Name, Initial: s.Initial})
	}
	children, err := buildAll(g, s.Children)
	if err != nil {
		return nil, err
	}
	return g.New(part.Config{Kind: part.KindComposed, Name: s.Name, Children: children})
}
