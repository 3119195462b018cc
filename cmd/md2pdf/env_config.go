package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmaupetit/md2pdf/internal/config"
)

// ErrInvalidEnv indicates an MD2PDF_* variable with an unparsable value.
var ErrInvalidEnv = errors.New("invalid environment variable")

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath     string        // MD2PDF_CONFIG
	Timeout        time.Duration // MD2PDF_TIMEOUT
	Workers        int           // MD2PDF_WORKERS
	Engine         string        // MD2PDF_ENGINE
	InputDir       string        // MD2PDF_INPUT_DIR
	OutputDir      string        // MD2PDF_OUTPUT_DIR
	SideMargin     *float64      // MD2PDF_SIDE_MARGIN, cm
	VerticalBuffer *float64      // MD2PDF_VERTICAL_BUFFER, px
}

// knownEnvVars lists valid MD2PDF_* environment variables.
var knownEnvVars = map[string]bool{
	"MD2PDF_CONFIG":          true,
	"MD2PDF_TIMEOUT":         true,
	"MD2PDF_WORKERS":         true,
	"MD2PDF_ENGINE":          true,
	"MD2PDF_INPUT_DIR":       true,
	"MD2PDF_OUTPUT_DIR":      true,
	"MD2PDF_SIDE_MARGIN":     true,
	"MD2PDF_VERTICAL_BUFFER": true,
	"MD2PDF_CONTAINER":       true, // read by doctor
}

func knownEnvVarNames() []string {
	names := make([]string, 0, len(knownEnvVars))
	for name := range knownEnvVars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadEnvConfig reads the MD2PDF_* variables. A malformed value is an
// error; unknown names only warn.
func loadEnvConfig(getenv func(string) string) (*envConfig, error) {
	cfg := &envConfig{
		ConfigPath: getenv("MD2PDF_CONFIG"),
		Engine:     getenv("MD2PDF_ENGINE"),
		InputDir:   getenv("MD2PDF_INPUT_DIR"),
		OutputDir:  getenv("MD2PDF_OUTPUT_DIR"),
	}

	if v := getenv("MD2PDF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: MD2PDF_TIMEOUT=%q (want a positive duration like 30s)", ErrInvalidEnv, v)
		}
		cfg.Timeout = d
	}
	if v := getenv("MD2PDF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: MD2PDF_WORKERS=%q (want a non-negative integer)", ErrInvalidEnv, v)
		}
		cfg.Workers = n
	}

	var err error
	if cfg.SideMargin, err = envFloat(getenv, "MD2PDF_SIDE_MARGIN"); err != nil {
		return nil, err
	}
	if cfg.VerticalBuffer, err = envFloat(getenv, "MD2PDF_VERTICAL_BUFFER"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envFloat(getenv func(string) string, name string) (*float64, error) {
	v := getenv(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q (want a number)", ErrInvalidEnv, name, v)
	}
	return &f, nil
}

// warnUnknownEnvVars warns about unrecognized MD2PDF_* variables, which
// are usually typos.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "MD2PDF_") && !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overrides config values with the environment.
// Precedence: CLI flags > env vars > config file > defaults; flags are
// applied afterwards by mergeFlags.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Timeout > 0 {
		cfg.Engine.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Engine.Workers = env.Workers
	}
	if env.Engine != "" {
		cfg.Engine.Name = env.Engine
	}
	if env.InputDir != "" {
		cfg.Input.DefaultDir = env.InputDir
	}
	if env.OutputDir != "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.SideMargin != nil {
		cfg.Page.SideMargin = env.SideMargin
	}
	if env.VerticalBuffer != nil {
		cfg.Page.VerticalBuffer = env.VerticalBuffer
	}
}
