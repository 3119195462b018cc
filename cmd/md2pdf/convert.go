package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/assets"
	"github.com/jmaupetit/md2pdf/internal/config"
	"github.com/jmaupetit/md2pdf/internal/dateutil"
	"github.com/jmaupetit/md2pdf/internal/hints"
	"github.com/jmaupetit/md2pdf/internal/pipeline"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput                  = errors.New("no input specified")
	ErrNoMarkdownFiles          = errors.New("no markdown files found")
	ErrReadFragment             = errors.New("failed to read header/footer file")
	ErrInvalidTimeout           = errors.New("invalid timeout")
	ErrInvalidVar               = errors.New("invalid template variable")
	ErrOutputWithMultipleInputs = errors.New("--output file cannot be used with multiple inputs")
)

// convertJob is everything a conversion run needs, resolved once from
// flags, environment and config. Watch mode keeps it to rebuild.
type convertJob struct {
	inputs    []string
	outputDir string
	flags     *convertFlags
	cfg       *config.Config
	params    *conversionParams
	files     []docTarget
}

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, positionalArgs []string, flags *convertFlags, env *Environment) error {
	job, err := prepareJob(positionalArgs, flags, env)
	if err != nil {
		return err
	}

	poolSize := md2pdf.ResolvePoolSize(job.cfg.Engine.Workers)
	if poolSize > len(job.files) && !flags.watch {
		poolSize = len(job.files)
	}
	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Pool size: %d\n", poolSize)
	}

	pool, err := env.NewPool(poolSize, buildOptions(job.cfg, flags, env)...)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	start := env.Now()
	results := convertBatch(ctx, pool, job.files, job.params)
	failed := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Done in %v\n", env.Now().Sub(start).Round(time.Millisecond))
	}

	if flags.watch {
		return runWatch(ctx, pool, job, env)
	}
	return batchError(results, failed)
}

// batchError reports failures. A single failed file returns its own error
// so the exit code reflects the cause.
func batchError(results []docResult, failed int) error {
	if failed == 0 {
		return nil
	}
	var first error
	for _, r := range results {
		if r.Err != nil {
			first = r.Err
			break
		}
	}
	if len(results) == 1 {
		return first
	}
	return fmt.Errorf("%d of %d conversion(s) failed, first: %w", failed, len(results), first)
}

// prepareJob resolves configuration, inputs and shared parameters.
func prepareJob(positionalArgs []string, flags *convertFlags, env *Environment) (*convertJob, error) {
	if err := validateWorkers(flags.workers); err != nil {
		return nil, err
	}
	if flags.timeout != "" {
		if d, err := time.ParseDuration(flags.timeout); err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q (want a positive duration like 30s)", ErrInvalidTimeout, flags.timeout)
		}
	}

	envCfg, err := loadEnvConfig(env.Getenv)
	if err != nil {
		return nil, err
	}
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr, env.Environ())
	}

	cfg, err := loadConfig(flags.common.config, envCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateWorkers(cfg.Engine.Workers); err != nil {
		return nil, err
	}

	inputs, err := resolveInputPaths(positionalArgs, cfg)
	if err != nil {
		return nil, err
	}
	outputDir := resolveOutputDir(flags.output, cfg)

	files, err := discoverAll(inputs, outputDir)
	if err != nil {
		return nil, err
	}

	params, err := buildConversionParams(flags, cfg, env.Now())
	if err != nil {
		return nil, err
	}

	return &convertJob{
		inputs:    inputs,
		outputDir: outputDir,
		flags:     flags,
		cfg:       cfg,
		params:    params,
		files:     files,
	}, nil
}

// loadConfig loads the config named by the flag, else by MD2PDF_CONFIG,
// else returns the defaults.
func loadConfig(flagConfig, envConfig string) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = envConfig
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	if flags.workers > 0 {
		cfg.Engine.Workers = flags.workers
	}
	if flags.timeout != "" {
		cfg.Engine.Timeout = flags.timeout
	}
	if flags.engine != "" {
		cfg.Engine.Name = flags.engine
	}

	if flags.overlay.header != "" {
		cfg.Overlay.Header = flags.overlay.header
	}
	if flags.overlay.footer != "" {
		cfg.Overlay.Footer = flags.overlay.footer
	}
	if flags.overlay.legacyLookup {
		cfg.Overlay.LegacyLookup = true
	}
	if flags.overlay.sideMarginSet {
		v := flags.overlay.sideMargin
		cfg.Page.SideMargin = &v
	}
	if flags.overlay.verticalBufferSet {
		v := flags.overlay.verticalBuffer
		cfg.Page.VerticalBuffer = &v
	}

	if flags.assets.style != "" {
		cfg.Style.Name = flags.assets.style
	}
	cfg.Style.Stylesheets = append(cfg.Style.Stylesheets, flags.assets.css...)
	if flags.assets.template != "" {
		cfg.Markdown.Template = flags.assets.template
	}
	if flags.assets.assetPath != "" {
		cfg.Assets.BasePath = flags.assets.assetPath
	}
	cfg.Markdown.Extras = append(cfg.Markdown.Extras, flags.extras...)
}

// buildOptions turns the merged config into converter options.
func buildOptions(cfg *config.Config, flags *convertFlags, env *Environment) []md2pdf.Option {
	var opts []md2pdf.Option

	if d := cfg.Engine.TimeoutDuration(); d > 0 {
		opts = append(opts, md2pdf.WithTimeout(d))
	}
	if cfg.Engine.Name != "" {
		opts = append(opts, md2pdf.WithEngine(cfg.Engine.Name))
	}
	if cfg.Page.SideMargin != nil {
		opts = append(opts, md2pdf.WithSideMargin(*cfg.Page.SideMargin))
	}
	if cfg.Page.VerticalBuffer != nil {
		opts = append(opts, md2pdf.WithVerticalBuffer(*cfg.Page.VerticalBuffer))
	}
	if cfg.Overlay.LegacyLookup {
		opts = append(opts, md2pdf.WithLegacyLookup())
	}
	if len(cfg.Markdown.Extras) > 0 {
		opts = append(opts, md2pdf.WithExtensions(cfg.Markdown.Extras...))
	}
	for name, options := range cfg.Markdown.ExtrasConfig {
		opts = append(opts, md2pdf.WithExtensionConfig(name, stringOptions(options)))
	}

	switch {
	case flags.assets.noStyle:
		opts = append(opts, md2pdf.WithStyle(""))
	case cfg.Style.Name != "":
		opts = append(opts, md2pdf.WithStyle(cfg.Style.Name))
	}
	if cfg.Markdown.Template != "" {
		opts = append(opts, md2pdf.WithTemplate(cfg.Markdown.Template))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, md2pdf.WithAssetPath(cfg.Assets.BasePath))
	}

	if flags.common.verbose {
		opts = append(opts, md2pdf.WithLogger(newVerboseLogger(env.Stderr)))
	}
	return opts
}

// stringOptions flattens YAML scalars such as true or 2 to their text.
func stringOptions(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// newVerboseLogger writes development-style debug logs to w.
func newVerboseLogger(w io.Writer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zap.DebugLevel))
}

// resolveInputPaths returns the positional inputs, or the configured
// default directory.
func resolveInputPaths(args []string, cfg *config.Config) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if cfg.Input.DefaultDir != "" {
		return []string{cfg.Input.DefaultDir}, nil
	}
	return nil, ErrNoInput
}

// resolveOutputDir determines the output directory from flag or config.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}

// parseVars parses --var key=value pairs. Values "auto" and "auto:FORMAT"
// become dates.
func parseVars(vars []string, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for _, kv := range vars {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q (want key=value)", ErrInvalidVar, kv)
		}
		resolved, err := dateutil.ResolveDate(value, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidVar, key, err)
		}
		out[key] = resolved
	}
	return out, nil
}

// resolveContextDates resolves "auto" dates in string values of the
// config context, in place.
func resolveContextDates(ctx map[string]any, now time.Time) error {
	for key, v := range ctx {
		s, ok := v.(string)
		if !ok || !dateutil.IsAuto(s) {
			continue
		}
		resolved, err := dateutil.ResolveDate(s, now)
		if err != nil {
			return fmt.Errorf("context %s: %w", key, err)
		}
		ctx[key] = resolved
	}
	return nil
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, flags *convertFlags) string {
	switch {
	case errors.Is(err, md2pdf.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, md2pdf.ErrPageLoad):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(configSearchPaths(flags.common.config))
	case errors.Is(err, ErrWritePDF), errors.Is(err, ErrWriteHTML):
		return hints.ForOutputDirectory()
	case errors.Is(err, md2pdf.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.NewEmbeddedLoader().Styles())
	case errors.Is(err, md2pdf.ErrTemplateNotFound):
		return hints.ForTemplateNotFound()
	case errors.Is(err, md2pdf.ErrElementNotFound):
		return hints.ForElementNotFound(flags.overlay.legacyLookup)
	case errors.Is(err, md2pdf.ErrUnknownEngine):
		return hints.ForUnknownEngine(md2pdf.Engines())
	case errors.Is(err, md2pdf.ErrUnknownExtension):
		return hints.ForUnknownExtension(extensionNames())
	}
	return ""
}

// configSearchPaths mirrors the lookup of config.LoadConfig for a name.
func configSearchPaths(name string) []string {
	if name == "" {
		return nil
	}
	paths := []string{name + ".yaml", name + ".yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "md2pdf", name+".yaml"), filepath.Join(dir, "md2pdf", name+".yml"))
	}
	return paths
}

func extensionNames() []string {
	return pipeline.Extensions()
}
