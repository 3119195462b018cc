// Package overlay composes repeated headers and footers onto a paginated
// document.
//
// Rendering is a two-pass process. Header and footer fragments are first
// rendered alone on a single page to measure their height; the body page
// margins are derived from those heights plus a vertical buffer. Once the
// main document is laid out and its page count is known, every fragment is
// rendered again for each page with that page's counters ("page 2 of 5") and
// its boxes are grafted onto the page's body box.
//
// Everything here runs sequentially on a single goroutine: each stage
// depends on the output of the previous one.
package overlay
