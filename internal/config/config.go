// Package config loads conversion settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmaupetit/md2pdf/internal/fileutil"
	"github.com/jmaupetit/md2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field limits.
const (
	MaxPathLength     = 4096
	MaxNameLength     = 100
	MaxContextKeys    = 200
	MaxContextKeyLen  = 100
	MaxStylesheets    = 50
	MaxSideMargin     = 10.0  // cm
	MaxVerticalBuffer = 500.0 // px
	MaxWorkers        = 64
)

// configDirName is the directory under the user config dir holding named configs.
const configDirName = "md2pdf"

// knownEngines mirrors the engines of the md2pdf package.
var knownEngines = []string{"flow", "chrome"}

// Config holds the settings of a conversion run.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Style    StyleConfig    `yaml:"style"`
	Assets   AssetsConfig   `yaml:"assets"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Page     PageConfig     `yaml:"page"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Engine   EngineConfig   `yaml:"engine"`

	// Context holds template variables available to every document.
	Context map[string]any `yaml:"context"`
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // used when no input argument is given
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the source
}

// StyleConfig defines the stylesheets of every document.
type StyleConfig struct {
	Name        string   `yaml:"name"`        // base style name or path; empty = built-in default
	Stylesheets []string `yaml:"stylesheets"` // extra CSS files, applied in order
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded assets only
}

// OverlayConfig defines the header and footer repeated on every page.
type OverlayConfig struct {
	Header       string `yaml:"header"` // HTML file path
	Footer       string `yaml:"footer"` // HTML file path
	LegacyLookup bool   `yaml:"legacyLookup"`
}

// PageConfig defines the page geometry. Nil means default.
type PageConfig struct {
	SideMargin     *float64 `yaml:"sideMargin"`     // cm
	VerticalBuffer *float64 `yaml:"verticalBuffer"` // px
}

// MarkdownConfig defines Markdown conversion options.
type MarkdownConfig struct {
	Extras   []string `yaml:"extras"`   // optional goldmark extensions
	Template string   `yaml:"template"` // base HTML template name or path

	// ExtrasConfig holds per-extension options, e.g.
	// highlight: {style: monokai, line_numbers: true}.
	ExtrasConfig map[string]map[string]any `yaml:"extrasConfig"`
}

// EngineConfig defines the rendering backend and batch settings.
type EngineConfig struct {
	Name    string `yaml:"name"`    // "flow" or "chrome"
	Timeout string `yaml:"timeout"` // Go duration, e.g. "45s"
	Workers int    `yaml:"workers"` // 0 = auto
}

// Validate checks lengths and ranges. Called by LoadConfig, and available
// to callers building a Config by hand.
func (c *Config) Validate() error {
	paths := [][2]string{
		{"input.defaultDir", c.Input.DefaultDir},
		{"output.defaultDir", c.Output.DefaultDir},
		{"style.name", c.Style.Name},
		{"assets.basePath", c.Assets.BasePath},
		{"overlay.header", c.Overlay.Header},
		{"overlay.footer", c.Overlay.Footer},
		{"markdown.template", c.Markdown.Template},
	}
	for _, p := range paths {
		if err := validateFieldLength(p[0], p[1], MaxPathLength); err != nil {
			return err
		}
	}

	if len(c.Style.Stylesheets) > MaxStylesheets {
		return fmt.Errorf("%w: style.stylesheets: %d entries (max %d)", ErrInvalidValue, len(c.Style.Stylesheets), MaxStylesheets)
	}
	for i, sheet := range c.Style.Stylesheets {
		if err := validateFieldLength(fmt.Sprintf("style.stylesheets[%d]", i), sheet, MaxPathLength); err != nil {
			return err
		}
	}
	for i, extra := range c.Markdown.Extras {
		if err := validateFieldLength(fmt.Sprintf("markdown.extras[%d]", i), extra, MaxNameLength); err != nil {
			return err
		}
	}

	for name := range c.Markdown.ExtrasConfig {
		if err := validateFieldLength("markdown.extrasConfig key", name, MaxNameLength); err != nil {
			return err
		}
	}

	if len(c.Context) > MaxContextKeys {
		return fmt.Errorf("%w: context: %d keys (max %d)", ErrInvalidValue, len(c.Context), MaxContextKeys)
	}
	for key := range c.Context {
		if err := validateFieldLength("context key", key, MaxContextKeyLen); err != nil {
			return err
		}
	}

	if err := validateRange("page.sideMargin", c.Page.SideMargin, MaxSideMargin); err != nil {
		return err
	}
	if err := validateRange("page.verticalBuffer", c.Page.VerticalBuffer, MaxVerticalBuffer); err != nil {
		return err
	}

	return c.Engine.validate()
}

func (e EngineConfig) validate() error {
	if e.Name != "" && !isKnownEngine(e.Name) {
		return fmt.Errorf("%w: engine.name: %q (must be %s)", ErrInvalidValue, e.Name, strings.Join(knownEngines, " or "))
	}
	if e.Timeout != "" {
		d, err := time.ParseDuration(e.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: engine.timeout: %q (want a positive duration like 30s)", ErrInvalidValue, e.Timeout)
		}
	}
	if e.Workers < 0 || e.Workers > MaxWorkers {
		return fmt.Errorf("%w: engine.workers: %d (must be between 0 and %d)", ErrInvalidValue, e.Workers, MaxWorkers)
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, or 0 when unset.
func (e EngineConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func isKnownEngine(name string) bool {
	for _, known := range knownEngines {
		if name == known {
			return true
		}
	}
	return false
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateRange(fieldName string, value *float64, maxValue float64) error {
	if value == nil {
		return nil
	}
	v := *value
	if math.IsNaN(v) || v < 0 || v > maxValue {
		return fmt.Errorf("%w: %s: %v (must be between 0 and %v)", ErrInvalidValue, fieldName, v, maxValue)
	}
	return nil
}

// DefaultConfig returns a configuration that leaves every setting to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// A value containing a path separator is a file path; otherwise it is a
// name searched as ./name.yaml, ./name.yml, then in the user config
// directory under md2pdf/. Missing files are an error.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveConfigPath searches for a named config in the working directory,
// then in the user config directory.
func resolveConfigPath(name string) (string, error) {
	dirs := []string{""}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, configDirName))
	}

	var tried []string
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, name+ext)
			if fileutil.FileExists(candidate) {
				return candidate, nil
			}
			tried = append(tried, candidate)
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
