package layout

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Style is the computed style of an element. Lengths that depend on the
// containing block stay unresolved until layout.
type Style struct {
	Display  string // block, inline, list-item, none
	Position string // static, fixed

	Top, Right, Bottom, Left Length
	Width, Height            Length

	Margin      [4]Length // top, right, bottom, left
	Padding     [4]Length
	BorderWidth [4]Length
	BorderColor Color

	FontSize     float64 // px
	FontFamily   string  // Helvetica, Times or Courier
	Bold, Italic bool
	LineHeight   float64 // multiple of FontSize, used when LineHeightPx is 0
	LineHeightPx float64

	Color      Color
	Background Color
	TextAlign  string // left, right, center, justify
	WhiteSpace string // normal, pre, nowrap

	BreakBefore, BreakAfter bool

	Content    []ContentItem
	HasContent bool

	counterReset     []counterOp
	counterIncrement []counterOp
	counters         map[string]int
}

// ContentItem is one part of a content value: a literal string, a counter
// or an attribute reference.
type ContentItem struct {
	Literal string
	Counter string
	Attr    string
}

type counterOp struct {
	name  string
	value int
}

// LineHeightValue returns the used line height in px.
func (s *Style) LineHeightValue() float64 {
	if s.LineHeightPx > 0 {
		return s.LineHeightPx
	}
	return s.LineHeight * s.FontSize
}

// Counter returns the current value of a counter, 0 when unset.
func (s *Style) Counter(name string) int {
	return s.counters[name]
}

// rootStyle is the style inherited by the html element.
func rootStyle() *Style {
	return &Style{
		Display:    "block",
		Position:   "static",
		FontSize:   rootFontSize,
		FontFamily: "Times",
		LineHeight: 1.2,
		Color:      Color{Set: true},
		TextAlign:  "left",
		WhiteSpace: "normal",
		counters:   map[string]int{},
	}
}

// inherit returns a style carrying the inherited properties of parent and
// initial values for everything else.
func inherit(parent *Style) *Style {
	return &Style{
		Display:      "inline",
		Position:     "static",
		FontSize:     parent.FontSize,
		FontFamily:   parent.FontFamily,
		Bold:         parent.Bold,
		Italic:       parent.Italic,
		LineHeight:   parent.LineHeight,
		LineHeightPx: parent.LineHeightPx,
		Color:        parent.Color,
		TextAlign:    parent.TextAlign,
		WhiteSpace:   parent.WhiteSpace,
		counters:     parent.counters,
	}
}

// cascade holds every rule applicable to a document in cascade order.
type cascade struct {
	rules []rule
}

func newCascade(sheets []*sheet) *cascade {
	c := &cascade{}
	for _, s := range sheets {
		c.rules = append(c.rules, s.rules...)
	}
	return c
}

type matched struct {
	decl        declaration
	specificity [3]int
	order       int
}

// compute returns the style of element n whose parent has style parent.
func (c *cascade) compute(n *html.Node, parent *Style) *Style {
	var decls []matched
	for _, r := range c.rules {
		best, ok := matchGroup(r, n)
		if !ok {
			continue
		}
		for _, d := range r.decls {
			decls = append(decls, matched{decl: d, specificity: best, order: r.order})
		}
	}
	if inline := attr(n, "style"); inline != "" {
		for _, d := range parseDeclarations(inline) {
			decls = append(decls, matched{decl: d, specificity: [3]int{1 << 20, 0, 0}, order: 1 << 30})
		}
	}

	sort.SliceStable(decls, func(i, j int) bool {
		a, b := decls[i], decls[j]
		if a.decl.important != b.decl.important {
			return !a.decl.important
		}
		if a.specificity != b.specificity {
			return lessSpecificity(a.specificity, b.specificity)
		}
		return a.order < b.order
	})

	s := inherit(parent)
	// font-size first so that em-based declarations see the final value
	for _, m := range decls {
		if m.decl.property == "font-size" || m.decl.property == "font" {
			s.apply(m.decl, parent)
		}
	}
	for _, m := range decls {
		if m.decl.property != "font-size" && m.decl.property != "font" {
			s.apply(m.decl, parent)
		}
	}
	s.resolveCounters()
	return s
}

// matchGroup returns the highest specificity among the selectors of r that
// match n.
func matchGroup(r rule, n *html.Node) ([3]int, bool) {
	var best [3]int
	found := false
	for _, sel := range r.selectors {
		if !sel.Match(n) {
			continue
		}
		spec := sel.Specificity()
		cur := [3]int{spec[0], spec[1], spec[2]}
		if !found || lessSpecificity(best, cur) {
			best = cur
		}
		found = true
	}
	return best, found
}

func lessSpecificity(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// resolveCounters applies counter-reset then counter-increment on a copy of
// the inherited counters.
func (s *Style) resolveCounters() {
	if len(s.counterReset) == 0 && len(s.counterIncrement) == 0 {
		return
	}
	counters := make(map[string]int, len(s.counters)+2)
	for k, v := range s.counters {
		counters[k] = v
	}
	for _, op := range s.counterReset {
		counters[op.name] = op.value
	}
	for _, op := range s.counterIncrement {
		counters[op.name] += op.value
	}
	s.counters = counters
}

// apply sets one declaration. Invalid values are ignored.
func (s *Style) apply(d declaration, parent *Style) {
	v := strings.TrimSpace(d.value)
	lv := strings.ToLower(v)

	switch d.property {
	case "display":
		switch lv {
		case "block", "inline", "list-item", "none":
			s.Display = lv
		case "inline-block", "flex", "grid", "table", "table-row", "table-cell", "table-row-group",
			"table-header-group", "table-footer-group", "flow-root":
			s.Display = "block"
		}
	case "position":
		switch lv {
		case "static", "relative":
			s.Position = "static"
		case "fixed", "absolute":
			s.Position = "fixed"
		}
	case "top":
		setLength(&s.Top, v)
	case "right":
		setLength(&s.Right, v)
	case "bottom":
		setLength(&s.Bottom, v)
	case "left":
		setLength(&s.Left, v)
	case "width":
		setLength(&s.Width, v)
	case "height":
		setLength(&s.Height, v)
	case "margin":
		if e, ok := parseEdges(v); ok {
			s.Margin = e
		}
	case "margin-top":
		setLength(&s.Margin[0], v)
	case "margin-right":
		setLength(&s.Margin[1], v)
	case "margin-bottom":
		setLength(&s.Margin[2], v)
	case "margin-left":
		setLength(&s.Margin[3], v)
	case "padding":
		if e, ok := parseEdges(v); ok {
			s.Padding = e
		}
	case "padding-top":
		setLength(&s.Padding[0], v)
	case "padding-right":
		setLength(&s.Padding[1], v)
	case "padding-bottom":
		setLength(&s.Padding[2], v)
	case "padding-left":
		setLength(&s.Padding[3], v)
	case "border":
		s.applyBorder(v, 0, 1, 2, 3)
	case "border-top":
		s.applyBorder(v, 0)
	case "border-right":
		s.applyBorder(v, 1)
	case "border-bottom":
		s.applyBorder(v, 2)
	case "border-left":
		s.applyBorder(v, 3)
	case "border-width":
		if e, ok := parseEdges(v); ok {
			s.BorderWidth = e
		}
	case "border-color":
		if c, ok := parseColor(v); ok {
			s.BorderColor = c
		}
	case "font-size":
		if fs, ok := parseFontSize(lv, parent.FontSize); ok {
			s.FontSize = fs
		}
	case "font-weight":
		switch lv {
		case "bold", "bolder", "600", "700", "800", "900":
			s.Bold = true
		case "normal", "lighter", "100", "200", "300", "400", "500":
			s.Bold = false
		}
	case "font-style":
		switch lv {
		case "italic", "oblique":
			s.Italic = true
		case "normal":
			s.Italic = false
		}
	case "font-family":
		if fam, ok := resolveFamily(v); ok {
			s.FontFamily = fam
		}
	case "font":
		s.applyFont(v, parent)
	case "line-height":
		s.applyLineHeight(lv)
	case "color":
		if c, ok := parseColor(v); ok {
			s.Color = c
		}
	case "background", "background-color":
		if c, ok := parseColor(v); ok {
			s.Background = c
		}
	case "text-align":
		switch lv {
		case "left", "right", "center", "justify":
			s.TextAlign = lv
		case "start":
			s.TextAlign = "left"
		case "end":
			s.TextAlign = "right"
		}
	case "white-space":
		switch lv {
		case "normal", "nowrap", "pre":
			s.WhiteSpace = lv
		case "pre-wrap", "pre-line", "break-spaces":
			s.WhiteSpace = "pre"
		}
	case "page-break-before", "break-before":
		s.BreakBefore = lv == "always" || lv == "page" || lv == "left" || lv == "right"
	case "page-break-after", "break-after":
		s.BreakAfter = lv == "always" || lv == "page" || lv == "left" || lv == "right"
	case "counter-reset":
		s.counterReset = parseCounterOps(v, 0)
	case "counter-increment":
		s.counterIncrement = parseCounterOps(v, 1)
	case "content":
		s.Content, s.HasContent = parseContent(v)
	}
}

func setLength(dst *Length, v string) {
	if l, ok := parseLength(v); ok {
		*dst = l
	}
}

// applyBorder parses "<width> <style> <color>" in any order onto sides.
func (s *Style) applyBorder(v string, sides ...int) {
	width := Length{}
	none := false
	for _, part := range strings.Fields(v) {
		lp := strings.ToLower(part)
		if l, ok := parseLength(lp); ok {
			width = l
			continue
		}
		switch lp {
		case "none", "hidden":
			none = true
			continue
		case "thin":
			width = px(1)
			continue
		case "medium":
			width = px(3)
			continue
		case "thick":
			width = px(5)
			continue
		case "solid", "dashed", "dotted", "double", "groove", "ridge", "inset", "outset":
			if !width.Defined {
				width = px(3)
			}
			continue
		}
		if c, ok := parseColor(part); ok {
			s.BorderColor = c
		}
	}
	if none {
		width = px(0)
	}
	for _, side := range sides {
		s.BorderWidth[side] = width
	}
}

// applyFont handles the "font" shorthand: [style] [weight] size[/line-height] family.
func (s *Style) applyFont(v string, parent *Style) {
	parts := strings.Fields(v)
	for i, part := range parts {
		lp := strings.ToLower(part)
		switch lp {
		case "italic", "oblique":
			s.Italic = true
			continue
		case "bold", "bolder", "600", "700", "800", "900":
			s.Bold = true
			continue
		case "normal":
			continue
		}
		size, lh, hasLH := strings.Cut(lp, "/")
		fs, ok := parseFontSize(size, parent.FontSize)
		if !ok {
			continue
		}
		s.FontSize = fs
		if hasLH {
			s.applyLineHeight(lh)
		}
		if fam, ok := resolveFamily(strings.Join(parts[i+1:], " ")); ok {
			s.FontFamily = fam
		}
		return
	}
}

func (s *Style) applyLineHeight(lv string) {
	if lv == "normal" {
		s.LineHeight, s.LineHeightPx = 1.2, 0
		return
	}
	if f, err := strconv.ParseFloat(lv, 64); err == nil && f > 0 {
		s.LineHeight, s.LineHeightPx = f, 0
		return
	}
	if l, ok := parseLength(lv); ok && !l.Auto {
		switch l.Unit {
		case "%":
			s.LineHeightPx = l.Value * s.FontSize / 100
		default:
			s.LineHeightPx = l.Resolve(s.FontSize, 0)
		}
	}
}

// fontSizeKeywords maps absolute size keywords to px.
var fontSizeKeywords = map[string]float64{
	"xx-small": 9,
	"x-small":  10,
	"small":    13,
	"medium":   16,
	"large":    18,
	"x-large":  24,
	"xx-large": 32,
}

func parseFontSize(lv string, parentSize float64) (float64, bool) {
	if fs, ok := fontSizeKeywords[lv]; ok {
		return fs, true
	}
	switch lv {
	case "smaller":
		return parentSize / 1.2, true
	case "larger":
		return parentSize * 1.2, true
	}
	l, ok := parseLength(lv)
	if !ok || l.Auto {
		return 0, false
	}
	switch l.Unit {
	case "em":
		return l.Value * parentSize, true
	case "%":
		return l.Value * parentSize / 100, true
	default:
		return l.Resolve(parentSize, 0), true
	}
}

// parseCounterOps parses "name [int] name [int] ..." lists.
func parseCounterOps(v string, def int) []counterOp {
	fields := strings.Fields(v)
	if len(fields) == 1 && strings.EqualFold(fields[0], "none") {
		return nil
	}
	var ops []counterOp
	for i := 0; i < len(fields); i++ {
		op := counterOp{name: fields[i], value: def}
		if i+1 < len(fields) {
			if n, err := strconv.Atoi(fields[i+1]); err == nil {
				op.value = n
				i++
			}
		}
		ops = append(ops, op)
	}
	return ops
}

// parseContent parses strings, counter(name) and attr(name) items.
// "none" and "normal" yield no content.
func parseContent(v string) ([]ContentItem, bool) {
	lv := strings.ToLower(strings.TrimSpace(v))
	if lv == "none" || lv == "normal" {
		return nil, false
	}
	var items []ContentItem
	for i := 0; i < len(v); {
		c := v[i]
		switch {
		case c == '"' || c == '\'':
			lit, next := readString(v, i)
			items = append(items, ContentItem{Literal: lit})
			i = next
		case strings.HasPrefix(strings.ToLower(v[i:]), "counter("):
			end := strings.IndexByte(v[i:], ')')
			if end == -1 {
				return items, len(items) > 0
			}
			name, _, _ := strings.Cut(v[i+len("counter("):i+end], ",")
			items = append(items, ContentItem{Counter: strings.TrimSpace(name)})
			i += end + 1
		case strings.HasPrefix(strings.ToLower(v[i:]), "attr("):
			end := strings.IndexByte(v[i:], ')')
			if end == -1 {
				return items, len(items) > 0
			}
			items = append(items, ContentItem{Attr: strings.TrimSpace(v[i+len("attr(") : i+end])})
			i += end + 1
		default:
			i++
		}
	}
	return items, true
}

// readString reads a quoted CSS string starting at v[start], handling
// backslash escapes (\A is a newline). It returns the index after the
// closing quote.
func readString(v string, start int) (string, int) {
	quote := v[start]
	var b strings.Builder
	i := start + 1
	for i < len(v) {
		c := v[i]
		if c == quote {
			return b.String(), i + 1
		}
		if c == '\\' && i+1 < len(v) {
			j := i + 1
			for j < len(v) && j < i+7 && isHex(v[j]) {
				j++
			}
			if j > i+1 {
				if r, err := strconv.ParseUint(v[i+1:j], 16, 32); err == nil {
					b.WriteRune(rune(r))
				}
				if j < len(v) && v[j] == ' ' {
					j++
				}
				i = j
				continue
			}
			b.WriteByte(v[i+1])
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// attr returns the value of attribute key on n.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
