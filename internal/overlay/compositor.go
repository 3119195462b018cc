package overlay

import (
	"context"
	"fmt"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// Compositor grafts freshly rendered fragments onto every page of a document.
type Compositor struct {
	Source FragmentSource
	Search layout.SearchStrategy
	Header *Fragment // nil when absent
	Footer *Fragment // nil when absent
}

// Apply mutates doc in place. For page i of N the header is rendered with
// (i, N) and grafted onto the page's body, then the footer. Nothing is
// shared between pages. Errors from the fragment source are returned as is.
func (c *Compositor) Apply(ctx context.Context, doc *layout.Document) error {
	if c.Header == nil && c.Footer == nil {
		return nil
	}

	total := len(doc.Pages)
	for i, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := page.Body(c.Search)
		if err != nil {
			return fmt.Errorf("page %d/%d: %w", i+1, total, err)
		}
		for _, f := range []*Fragment{c.Header, c.Footer} {
			if f == nil {
				continue
			}
			rendered, err := c.Source.Render(f, i+1, total)
			if err != nil {
				return err
			}
			if err := body.Graft(rendered.Body); err != nil {
				return fmt.Errorf("page %d/%d: %w", i+1, total, err)
			}
		}
	}
	return nil
}
