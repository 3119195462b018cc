// Package pipeline implements the Markdown stage of a conversion.
//
// The stages run in this order:
//   - front matter extraction (YAML, goccy/go-yaml)
//   - template substitution of the Markdown body with the merged context
//   - Markdown preprocessing (line normalization, ==highlight== syntax)
//   - Markdown to HTML conversion via goldmark
//   - rendering of the base HTML document template
//
// Page layout, pagination and header/footer overlays are handled by the
// layout and overlay packages. The helpers in paths.go and inject.go only
// serve the Chrome backend, which loads the document from a temporary file.
package pipeline
