package md2pdf

import (
	"time"

	"go.uber.org/zap"

	"github.com/jmaupetit/md2pdf/internal/assets"
	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/overlay"
	"github.com/jmaupetit/md2pdf/internal/pipeline"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds the settings applied by options.
type converterConfig struct {
	timeout        time.Duration
	sideMargin     float64
	verticalBuffer float64
	search         layout.SearchStrategy
	engine         string
	extensions     []string
	extensionCfg   pipeline.ExtensionConfig
	style          string // name, path, or CSS content
	template       string // name or path
	assetPath      string
	creationDate   time.Time
	logger         *zap.Logger
}

// defaultTimeout bounds a Chrome page load when ctx has no deadline.
const defaultTimeout = 30 * time.Second

func defaultConfig() converterConfig {
	return converterConfig{
		timeout:        defaultTimeout,
		sideMargin:     overlay.DefaultSideMargin,
		verticalBuffer: overlay.DefaultVerticalBuffer,
		search:         layout.SearchDepthFirst,
		engine:         EngineFlow,
		style:          assets.DefaultStyleName,
		template:       assets.DefaultTemplateName,
		logger:         zap.NewNop(),
	}
}

// WithTimeout sets the Chrome page load timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2pdf: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithSideMargin sets the left and right page margins in centimeters.
// Default 2. Negative values make NewConverter fail.
func WithSideMargin(cm float64) Option {
	return func(c *Converter) {
		c.cfg.sideMargin = cm
	}
}

// WithVerticalBuffer sets the space in px between the header or footer and
// the body content. Default 30.
func WithVerticalBuffer(px float64) Option {
	return func(c *Converter) {
		c.cfg.verticalBuffer = px
	}
}

// WithLegacyLookup locates fragment wrappers by following the first child
// at every level instead of searching the whole tree. Kept for documents
// laid out against the older lookup.
func WithLegacyLookup() Option {
	return func(c *Converter) {
		c.cfg.search = layout.SearchLeftmost
	}
}

// WithEngine selects the rendering engine: "flow" (default) or "chrome".
func WithEngine(name string) Option {
	return func(c *Converter) {
		c.cfg.engine = name
	}
}

// WithExtensions enables optional goldmark extensions by name, such as
// "typographer" or "definition-list".
func WithExtensions(names ...string) Option {
	return func(c *Converter) {
		c.cfg.extensions = append(c.cfg.extensions, names...)
	}
}

// WithExtensionConfig sets the options of one extension, for example
// WithExtensionConfig("highlight", map[string]string{"style": "monokai"}).
// Options for an extension that is not enabled are checked but unused.
func WithExtensionConfig(name string, options map[string]string) Option {
	return func(c *Converter) {
		if c.cfg.extensionCfg == nil {
			c.cfg.extensionCfg = pipeline.ExtensionConfig{}
		}
		c.cfg.extensionCfg[name] = options
	}
}

// WithStyle sets the base style: a built-in name ("default"), a CSS file
// path, or CSS content. An empty string disables the base style.
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.style = style
	}
}

// WithTemplate sets the base HTML document template: a name resolved
// through the asset loader or an .html file path.
func WithTemplate(template string) Option {
	return func(c *Converter) {
		c.cfg.template = template
	}
}

// WithAssetPath sets a directory whose styles/ and templates/ override the
// built-in assets by name.
func WithAssetPath(dir string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = dir
	}
}

// WithCreationDate fixes the PDF creation date, making flow engine output
// reproducible.
func WithCreationDate(t time.Time) Option {
	return func(c *Converter) {
		c.cfg.creationDate = t
	}
}

// WithLogger sets the logger receiving debug events. Nothing is logged by
// default.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.cfg.logger = logger
		}
	}
}
