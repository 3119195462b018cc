package layout

import (
	"errors"
	"fmt"
)

// ErrElementNotFound indicates that no box with the requested tag exists in a tree.
var ErrElementNotFound = errors.New("element not found")

// ErrInvalidGraft indicates a graft that would create a cycle or a self-graft.
var ErrInvalidGraft = errors.New("invalid graft")

// Kind identifies the role of a box in the tree.
type Kind int

const (
	PageBox  Kind = iota // root of a page
	BlockBox             // block-level element or anonymous block
	LineBox              // one line of inline content
	TextBox              // run of text with a single style
	ImageBox             // replaced image content
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case PageBox:
		return "page"
	case BlockBox:
		return "block"
	case LineBox:
		return "line"
	case TextBox:
		return "text"
	case ImageBox:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Edges holds four side values in px (top, right, bottom, left order).
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Box is a laid-out rectangle. Coordinates are page-relative CSS pixels,
// origin at the top-left corner of the page; X/Y/Width/Height describe the
// border box.
type Box struct {
	Kind     Kind
	Tag      string // element tag, empty for anonymous boxes
	X, Y     float64
	Width    float64
	Height   float64
	Style    *Style // shared and read-only once the box is produced
	Text     string // TextBox only
	Image    *Image // ImageBox only
	Children []*Box
}

// SearchStrategy selects how Find walks a tree.
type SearchStrategy int

const (
	// SearchDepthFirst visits every node in pre-order.
	SearchDepthFirst SearchStrategy = iota

	// SearchLeftmost only descends into the first child at each level.
	// A tag nested under a non-first sibling is never found. It matches the
	// lookup used by older revisions of the overlay generator and is kept for
	// byte-for-byte compatible layouts.
	SearchLeftmost
)

// String returns the strategy name as used in configuration files.
func (s SearchStrategy) String() string {
	switch s {
	case SearchDepthFirst:
		return "depth-first"
	case SearchLeftmost:
		return "leftmost"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Find returns the first box of the subtree rooted at b (b included) whose
// tag equals tag, or nil.
func (b *Box) Find(tag string, strategy SearchStrategy) *Box {
	if b == nil {
		return nil
	}
	if b.Tag == tag {
		return b
	}
	if strategy == SearchLeftmost {
		return findLeftmost(b.Children, tag)
	}
	for _, child := range b.Children {
		if found := child.Find(tag, strategy); found != nil {
			return found
		}
	}
	return nil
}

// findLeftmost inspects the first box of boxes and only recurses into it.
func findLeftmost(boxes []*Box, tag string) *Box {
	for _, box := range boxes {
		if box.Tag == tag {
			return box
		}
		return findLeftmost(box.Children, tag)
	}
	return nil
}

// Lookup is Find returning ErrElementNotFound instead of nil.
func (b *Box) Lookup(tag string, strategy SearchStrategy) (*Box, error) {
	found := b.Find(tag, strategy)
	if found == nil {
		return nil, fmt.Errorf("%w: <%s> (%s search)", ErrElementNotFound, tag, strategy)
	}
	return found, nil
}

// Graft moves every child of src to the end of b's children. src is left
// without children so that no node is reachable from two parents.
func (b *Box) Graft(src *Box) error {
	if b == nil || src == nil {
		return fmt.Errorf("%w: nil box", ErrInvalidGraft)
	}
	if b == src || src.contains(b) {
		return fmt.Errorf("%w: target is inside the grafted subtree", ErrInvalidGraft)
	}
	b.Children = append(b.Children, src.Children...)
	src.Children = nil
	return nil
}

// contains reports whether target is a strict descendant of b.
func (b *Box) contains(target *Box) bool {
	for _, child := range b.Children {
		if child == target || child.contains(target) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the subtree rooted at b.
func (b *Box) Clone() *Box {
	if b == nil {
		return nil
	}
	c := *b
	c.Children = make([]*Box, len(b.Children))
	for i, child := range b.Children {
		c.Children[i] = child.Clone()
	}
	return &c
}

// Translate shifts b and all its descendants.
func (b *Box) Translate(dx, dy float64) {
	b.X += dx
	b.Y += dy
	for _, child := range b.Children {
		child.Translate(dx, dy)
	}
}

// Walk calls fn for b and its descendants in pre-order. Returning false from
// fn skips the children of that box.
func (b *Box) Walk(fn func(*Box) bool) {
	if !fn(b) {
		return
	}
	for _, child := range b.Children {
		child.Walk(fn)
	}
}

// Bottom returns the Y coordinate of the lower border edge.
func (b *Box) Bottom() float64 {
	return b.Y + b.Height
}

// Page is one physical sheet.
type Page struct {
	Width, Height float64 // px
	Margin        Edges   // px
	Box           *Box    // page box, root of the page tree
}

// Body returns the page's body box using strategy.
func (p *Page) Body(strategy SearchStrategy) (*Box, error) {
	return p.Box.Lookup("body", strategy)
}

// Document is the paginated result of a render.
type Document struct {
	Title string
	Pages []*Page
}
