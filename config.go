package htmlizer

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"

	"github.com/livefir/htmlizer/internal/eval"
)

const (
	// DefaultBindAttribute carries bindings in the default mode.
	DefaultBindAttribute = "data-bind"
	// NoConflictBindAttribute carries bindings under WithNoConflict.
	NoConflictBindAttribute = "data-htmlizer"
)

var (
	validate = validator.New()

	// shared across templates so identical expressions compile once
	defaultEvaluator = eval.New()
)

// Config holds compile and render configuration. The exported fields with
// yaml tags can be loaded from a file with LoadConfig.
type Config struct {
	// NoConflict ignores ko-prefixed comment blocks and switches the binding
	// attribute to data-htmlizer.
	NoConflict bool `yaml:"no_conflict"`

	// BindAttribute overrides the binding attribute name.
	BindAttribute string `yaml:"bind_attribute,omitempty" validate:"omitempty,startswith=data-,excludesall= <>"`

	// Minify makes Page output go through the HTML minifier.
	Minify bool `yaml:"minify"`

	// Quiet suppresses warnings.
	Quiet bool `yaml:"quiet"`

	Logger   *log.Logger         `yaml:"-" validate:"-"`
	Registry *Registry           `yaml:"-" validate:"-"`
	Upgrader *websocket.Upgrader `yaml:"-" validate:"-"`

	evaluator *eval.Evaluator
}

// Option is a functional option for configuring compilation
type Option func(*Config)

// WithNoConflict enables the compatibility mode that leaves ko comments and
// data-bind attributes to another engine.
func WithNoConflict() Option {
	return func(c *Config) {
		c.NoConflict = true
	}
}

// WithBindAttribute sets a custom binding attribute name
func WithBindAttribute(name string) Option {
	return func(c *Config) {
		c.BindAttribute = name
	}
}

// WithRegistry sets the binding handler registry
func WithRegistry(r *Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithLogger sets the logger used for warnings
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithQuiet suppresses warnings
func WithQuiet() Option {
	return func(c *Config) {
		c.Quiet = true
	}
}

// WithUpgrader sets a custom WebSocket upgrader for Page handlers
func WithUpgrader(upgrader *websocket.Upgrader) Option {
	return func(c *Config) {
		c.Upgrader = upgrader
	}
}

// WithConfig copies the file-level settings of cfg. Options applied after
// it still take precedence.
func WithConfig(cfg *Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		c.NoConflict = cfg.NoConflict
		c.BindAttribute = cfg.BindAttribute
		c.Minify = cfg.Minify
		c.Quiet = cfg.Quiet
		if cfg.Logger != nil {
			c.Logger = cfg.Logger
		}
		if cfg.Registry != nil {
			c.Registry = cfg.Registry
		}
		if cfg.Upgrader != nil {
			c.Upgrader = cfg.Upgrader
		}
	}
}

func newConfig(opts []Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry
	}
	if cfg.Upgrader == nil {
		cfg.Upgrader = &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
	}
	cfg.evaluator = defaultEvaluator
	return cfg
}

// Attribute returns the binding attribute name in effect.
func (c *Config) Attribute() string {
	switch {
	case c.BindAttribute != "":
		return c.BindAttribute
	case c.NoConflict:
		return NoConflictBindAttribute
	}
	return DefaultBindAttribute
}

// Prefixes returns the comment block prefixes in effect.
func (c *Config) Prefixes() []string {
	if c.NoConflict {
		return []string{"hz"}
	}
	return []string{"ko", "hz"}
}

// Validate checks the file-level settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) warnf(format string, args ...any) {
	if c.Quiet {
		return
	}
	c.Logger.Printf("htmlizer: warning: "+format, args...)
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
