// Package layout turns HTML and CSS into a paginated tree of positioned boxes.
//
// The engine supports the CSS subset needed for printed Markdown: block and
// inline formatting, margins, padding, borders, colors, the core PDF fonts,
// images, counters with generated content, fixed positioning and @page size
// and margins. Everything else is parsed and ignored, as browsers do with
// unknown properties.
//
// Boxes use CSS pixels with the origin at the top-left corner of the page.
// A box tree is owned by a single goroutine once returned by Render.
package layout
