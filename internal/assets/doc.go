// Package assets provides the CSS styles and base HTML document templates
// used by conversions.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - go:embed styles and templates
//	    ├── FilesystemLoader  - custom directory on disk
//	    └── AssetResolver     - custom first, embedded as fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css           # stylesheet, e.g. default.css
//	└── templates/
//	    └── {name}.html          # base document, e.g. base.html
//
// A base template receives {{ .Title }}, {{ .Content }} and {{ .Vars }}.
//
// # Security
//
// Asset names may not contain path separators or dots. FilesystemLoader
// resolves symlinks and refuses paths that leave basePath.
package assets
