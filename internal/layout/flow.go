package layout

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// frame is an open block box receiving content.
type frame struct {
	box       *Box
	contentX  float64
	contentW  float64
	padTop    float64 // top border plus top padding
	padBottom float64 // bottom padding plus bottom border
}

// flow places boxes onto pages. A flow with paginate false lays out on an
// unbounded canvas, which is how fixed elements are measured.
type flow struct {
	engine  *Engine
	baseURL string
	doc     *Document

	pageW, pageH float64
	margin       Edges
	paginate     bool

	stack         []*frame
	y             float64
	pendingMargin float64

	fresh      bool // nothing placed on the current page yet
	continued  bool // the current page follows a break
	forceBreak bool

	marker      string
	markerStyle *Style
}

func newFlow(e *Engine, baseURL string, ps pageSetup) *flow {
	f := &flow{
		engine:   e,
		baseURL:  baseURL,
		doc:      &Document{},
		pageW:    ps.width,
		pageH:    ps.height,
		margin:   ps.resolveMargin(),
		paginate: true,
	}
	pb := f.addPage()
	f.stack = []*frame{{
		box:      pb,
		contentX: f.margin.Left,
		contentW: max(f.pageW-f.margin.Left-f.margin.Right, 0),
	}}
	return f
}

func (f *flow) top() *frame { return f.stack[len(f.stack)-1] }

func (f *flow) contentBottom() float64 { return f.pageH - f.margin.Bottom }

func (f *flow) addPage() *Box {
	pb := &Box{Kind: PageBox, Width: f.pageW, Height: f.pageH}
	f.doc.Pages = append(f.doc.Pages, &Page{
		Width:  f.pageW,
		Height: f.pageH,
		Margin: f.margin,
		Box:    pb,
	})
	f.y = f.margin.Top
	f.fresh = true
	return pb
}

// breakPage closes the open boxes on the current page and reopens them as
// continuation boxes at the top of a new page. Open boxes that received
// nothing, or start below the content area, are removed from the page they
// were opened on; the others are clipped to the content area.
func (f *flow) breakPage() {
	limit := f.contentBottom()
	moved := make(map[*frame]bool)
	for i := len(f.stack) - 1; i >= 1; i-- {
		fr := f.stack[i]
		if len(fr.box.Children) == 0 || fr.box.Y >= limit {
			removeChild(f.stack[i-1].box, fr.box)
			moved[fr] = true
			continue
		}
		fr.box.Height = max(min(f.y, limit)-fr.box.Y, 0)
	}
	pb := f.addPage()
	f.stack[0].box = pb
	parent := pb
	for _, fr := range f.stack[1:] {
		cont := &Box{
			Kind:  BlockBox,
			Tag:   fr.box.Tag,
			X:     fr.box.X,
			Y:     f.y,
			Width: fr.box.Width,
			Style: fr.box.Style,
		}
		parent.Children = append(parent.Children, cont)
		fr.box = cont
		parent = cont
		// a block removed from the previous page starts here
		if moved[fr] {
			f.y += fr.padTop
		}
	}
	f.pendingMargin = 0
	f.continued = true
	f.forceBreak = false
}

func removeChild(parent, child *Box) {
	for i := len(parent.Children) - 1; i >= 0; i-- {
		if parent.Children[i] == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

func (f *flow) layoutBlock(n *node) {
	if n.style.Position == "fixed" {
		f.layoutFixed(n)
		return
	}
	f.placeBlock(n)
}

// placeBlock lays out n as an in-flow block of the current frame.
func (f *flow) placeBlock(n *node) {
	st := n.style
	fs := st.FontSize
	cw := f.top().contentW

	mt := st.Margin[0].Resolve(fs, cw)
	mr := st.Margin[1].Resolve(fs, cw)
	mb := st.Margin[2].Resolve(fs, cw)
	ml := st.Margin[3].Resolve(fs, cw)
	bt := st.BorderWidth[0].Resolve(fs, cw)
	br := st.BorderWidth[1].Resolve(fs, cw)
	bb := st.BorderWidth[2].Resolve(fs, cw)
	bl := st.BorderWidth[3].Resolve(fs, cw)
	pt := st.Padding[0].Resolve(fs, cw)
	pr := st.Padding[1].Resolve(fs, cw)
	pb := st.Padding[2].Resolve(fs, cw)
	pl := st.Padding[3].Resolve(fs, cw)

	if f.paginate && (st.BreakBefore || f.forceBreak) && !f.fresh {
		f.breakPage()
	}
	f.forceBreak = false

	gap := max(f.pendingMargin, mt)
	if f.fresh && f.continued {
		gap = 0
	}
	// The opening edge and a first line must fit, or the block starts on
	// the next page. So must a fixed height no taller than a page.
	need := bt + pt + st.LineHeightValue()
	if st.Height.Defined && !st.Height.Auto {
		if h := st.Height.Resolve(fs, 0) + pt + pb + bt + bb; h <= f.contentBottom()-f.margin.Top {
			need = max(need, h)
		}
	}
	if f.paginate && !f.fresh && f.y+gap+need > f.contentBottom() {
		f.breakPage()
		gap = 0
	}
	f.y += gap
	f.pendingMargin = 0

	parent := f.top()
	width := parent.contentW - ml - mr
	if st.Width.Defined && !st.Width.Auto {
		width = st.Width.Resolve(fs, cw) + pl + pr + bl + br
	}
	box := &Box{
		Kind:  BlockBox,
		Tag:   n.tag,
		X:     parent.contentX + ml,
		Y:     f.y,
		Width: width,
		Style: st,
	}
	parent.box.Children = append(parent.box.Children, box)

	fr := &frame{
		box:       box,
		contentX:  box.X + bl + pl,
		contentW:  max(width-bl-br-pl-pr, 0),
		padTop:    bt + pt,
		padBottom: pb + bb,
	}
	f.stack = append(f.stack, fr)

	if bt+pt > 0 {
		f.y += bt + pt
		f.fresh = false
	}
	if n.marker != "" {
		f.marker, f.markerStyle = n.marker, st
	}

	if n.tag == "img" {
		f.layoutInline([]*node{n}, st)
	} else {
		f.layoutChildren(n)
	}

	f.stack = f.stack[:len(f.stack)-1]
	box = fr.box
	if fr.padBottom > 0 {
		before := f.y
		f.y += f.pendingMargin + fr.padBottom
		if f.paginate {
			// the bottom edge is clipped to the content area
			f.y = min(f.y, max(f.contentBottom(), before))
		}
		f.pendingMargin = 0
		f.fresh = false
	}
	if st.Height.Defined && !st.Height.Auto {
		if h := st.Height.Resolve(fs, 0) + pt + pb + bt + bb; box.Y+h > f.y {
			f.y = box.Y + h
			if f.paginate {
				f.y = max(min(f.y, f.contentBottom()), box.Y)
			}
		}
	}
	box.Height = f.y - box.Y
	f.pendingMargin = max(f.pendingMargin, mb)
	if st.BreakAfter {
		f.forceBreak = true
	}
}

// layoutChildren lays out block children directly and groups consecutive
// inline children into anonymous runs of lines.
func (f *flow) layoutChildren(n *node) {
	var run []*node
	flush := func() {
		if len(run) > 0 {
			f.layoutInline(run, n.style)
			run = nil
		}
	}
	for _, c := range n.children {
		if c.blockLevel() {
			flush()
			f.layoutBlock(c)
			continue
		}
		run = append(run, c)
	}
	flush()
}

// layoutFixed lays n out of flow against the page content area and anchors
// it with top or bottom.
func (f *flow) layoutFixed(n *node) {
	st := n.style
	fs := st.FontSize
	cbX, cbY := f.margin.Left, f.margin.Top
	cbW := max(f.pageW-f.margin.Left-f.margin.Right, 0)
	cbH := max(f.pageH-f.margin.Top-f.margin.Bottom, 0)
	left := st.Left.Resolve(fs, cbW)
	right := st.Right.Resolve(fs, cbW)

	holder := &Box{Kind: BlockBox}
	sub := &flow{
		engine:  f.engine,
		baseURL: f.baseURL,
		doc:     f.doc,
		pageW:   f.pageW,
		pageH:   f.pageH,
		margin:  f.margin,
		stack: []*frame{{
			box:      holder,
			contentX: cbX + left,
			contentW: max(cbW-left-right, 0),
		}},
	}
	sub.placeBlock(n)
	box := holder.Children[0]

	var dy float64
	switch {
	case st.Top.Defined && !st.Top.Auto:
		dy = cbY + st.Top.Resolve(fs, cbH)
	case st.Bottom.Defined && !st.Bottom.Auto:
		mb := st.Margin[2].Resolve(fs, cbW)
		dy = cbY + cbH - st.Bottom.Resolve(fs, cbH) - (box.Bottom() + mb)
	default:
		dy = f.y + f.pendingMargin
	}
	box.Translate(0, dy)

	parent := f.top().box
	parent.Children = append(parent.Children, box)
}

type itemKind int

const (
	itemWord itemKind = iota
	itemSpace
	itemBreak
	itemImage
	itemMarker
)

// item is one unit of inline content.
type item struct {
	kind   itemKind
	text   string
	style  *Style
	width  float64
	height float64 // images only
	img    *Image
}

func (it item) lineHeight() float64 {
	if it.kind == itemImage {
		return it.height
	}
	return it.style.LineHeightValue()
}

// layoutInline breaks the inline content of nodes into lines. Break
// opportunities are the spaces between words.
func (f *flow) layoutInline(nodes []*node, blockStyle *Style) {
	items := f.collect(nodes, nil)
	for len(items) > 0 && items[len(items)-1].kind == itemSpace {
		items = items[:len(items)-1]
	}
	if len(items) > 0 && items[len(items)-1].kind == itemBreak {
		items = items[:len(items)-1]
	}
	if !hasVisible(items) {
		return
	}
	if f.marker != "" {
		marker := item{
			kind:  itemMarker,
			text:  f.marker,
			style: f.markerStyle,
			width: textWidth(f.marker, f.markerStyle),
		}
		items = append([]item{marker}, items...)
		f.marker, f.markerStyle = "", nil
	}

	maxW := f.top().contentW
	var line []item
	lineW := 0.0
	for i := 0; i < len(items); {
		it := items[i]
		switch it.kind {
		case itemBreak:
			f.placeLine(line, blockStyle, true)
			line, lineW = nil, 0
			i++
			continue
		case itemSpace:
			if len(line) > 0 && line[len(line)-1].kind != itemSpace {
				line = append(line, it)
				lineW += it.width
			}
			i++
			continue
		case itemMarker:
			line = append(line, it)
			i++
			continue
		}

		j := i
		unitW := 0.0
		for j < len(items) && (items[j].kind == itemWord || items[j].kind == itemImage) {
			unitW += items[j].width
			j++
		}
		if lineW+unitW > maxW && hasVisible(line) {
			f.placeLine(line, blockStyle, false)
			line, lineW = nil, 0
		}
		line = append(line, items[i:j]...)
		lineW += unitW
		i = j
	}
	f.placeLine(line, blockStyle, false)
}

func hasVisible(items []item) bool {
	for _, it := range items {
		switch it.kind {
		case itemWord, itemImage, itemBreak:
			return true
		}
	}
	return false
}

// collect flattens inline nodes into items.
func (f *flow) collect(nodes []*node, items []item) []item {
	for _, n := range nodes {
		switch {
		case n.isText():
			items = appendText(items, n.text, n.style)
		case n.tag == "br":
			items = append(items, item{kind: itemBreak, style: n.style})
		case n.tag == "img":
			items = f.appendImage(items, n)
		default:
			items = f.collect(n.children, items)
		}
	}
	return items
}

// appendText splits text into words and collapsed spaces following the
// white-space mode of st.
func appendText(items []item, text string, st *Style) []item {
	word := func(s string) {
		items = append(items, item{kind: itemWord, text: s, style: st, width: textWidth(s, st)})
	}
	space := func() {
		if len(items) > 0 && items[len(items)-1].kind == itemSpace {
			return
		}
		items = append(items, item{kind: itemSpace, text: " ", style: st, width: textWidth(" ", st)})
	}

	switch st.WhiteSpace {
	case "pre":
		text = strings.ReplaceAll(text, "\r\n", "\n")
		for i, line := range strings.Split(strings.ReplaceAll(text, "\t", "    "), "\n") {
			if i > 0 {
				items = append(items, item{kind: itemBreak, style: st})
			}
			if line != "" {
				word(line)
			}
		}
		return items
	case "nowrap":
		trimmed := strings.Join(strings.Fields(text), " ")
		if trimmed == "" {
			if text != "" {
				space()
			}
			return items
		}
		if startsWithSpace(text) {
			space()
		}
		word(trimmed)
		if endsWithSpace(text) {
			space()
		}
		return items
	}

	start := -1
	for i, r := range text {
		if isCollapsible(r) {
			if start >= 0 {
				word(text[start:i])
				start = -1
			}
			space()
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		word(text[start:])
	}
	return items
}

func isCollapsible(r rune) bool {
	return r != '\u00a0' && unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return s != "" && isCollapsible(r)
}

func endsWithSpace(s string) bool {
	return s != "" && isCollapsible(rune(s[len(s)-1]))
}

// appendImage adds an image item sized from attributes, style or natural
// size, scaled down to fit the content area. Unavailable images fall back
// to their alt text.
func (f *flow) appendImage(items []item, n *node) []item {
	img, err := f.engine.images.load(attr(n.html, "src"), f.baseURL)
	if err != nil {
		if alt := attr(n.html, "alt"); alt != "" {
			return appendText(items, alt, n.style)
		}
		return items
	}

	cw := f.top().contentW
	w, h := float64(img.Width), float64(img.Height)
	reqW, hasW := imageDimension(n, "width", n.style.Width, cw)
	reqH, hasH := imageDimension(n, "height", n.style.Height, 0)
	switch {
	case hasW && hasH:
		w, h = reqW, reqH
	case hasW && w > 0:
		h, w = h*reqW/w, reqW
	case hasH && h > 0:
		w, h = w*reqH/h, reqH
	}
	if w > cw && w > 0 {
		h, w = h*cw/w, cw
	}
	if f.paginate {
		if maxH := f.contentBottom() - f.margin.Top; h > maxH && h > 0 {
			w, h = w*maxH/h, maxH
		}
	}
	return append(items, item{kind: itemImage, img: img, style: n.style, width: w, height: h})
}

// imageDimension returns a requested size from CSS or the HTML attribute.
func imageDimension(n *node, name string, l Length, ref float64) (float64, bool) {
	if l.Defined && !l.Auto && (l.Unit != "%" || ref > 0) {
		return l.Resolve(n.style.FontSize, ref), true
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(attr(n.html, name), "px"), 64); err == nil && v > 0 {
		return v, true
	}
	return 0, false
}

// placeLine emits one line box. Trailing spaces are dropped. forced lines
// come from <br> or preformatted newlines and are emitted even when empty.
func (f *flow) placeLine(line []item, blockStyle *Style, forced bool) {
	for len(line) > 0 && line[len(line)-1].kind == itemSpace {
		line = line[:len(line)-1]
	}
	if len(line) == 0 && !forced {
		return
	}

	h := blockStyle.LineHeightValue()
	used := 0.0
	for _, it := range line {
		h = max(h, it.lineHeight())
		if it.kind != itemMarker {
			used += it.width
		}
	}

	if f.paginate {
		if f.forceBreak && !f.fresh {
			f.breakPage()
		}
		f.forceBreak = false
		if f.y+f.pendingMargin+h > f.contentBottom() && !f.fresh {
			f.breakPage()
		}
	}
	f.y += f.pendingMargin
	f.pendingMargin = 0

	fr := f.top()
	lb := &Box{Kind: LineBox, X: fr.contentX, Y: f.y, Width: fr.contentW, Height: h, Style: blockStyle}

	x := fr.contentX
	switch blockStyle.TextAlign {
	case "right":
		x += max(fr.contentW-used, 0)
	case "center":
		x += max(fr.contentW-used, 0) / 2
	}

	var run *Box
	for _, it := range line {
		switch it.kind {
		case itemMarker:
			lh := it.style.LineHeightValue()
			lb.Children = append(lb.Children, &Box{
				Kind:   TextBox,
				X:      fr.contentX - it.width,
				Y:      f.y + h - lh,
				Width:  it.width,
				Height: lh,
				Style:  it.style,
				Text:   it.text,
			})
		case itemImage:
			run = nil
			lb.Children = append(lb.Children, &Box{
				Kind:   ImageBox,
				Tag:    "img",
				X:      x,
				Y:      f.y + h - it.height,
				Width:  it.width,
				Height: it.height,
				Style:  it.style,
				Image:  it.img,
			})
			x += it.width
		default:
			if run != nil && run.Style == it.style {
				run.Text += it.text
				run.Width += it.width
			} else {
				lh := it.style.LineHeightValue()
				run = &Box{
					Kind:   TextBox,
					X:      x,
					Y:      f.y + h - lh,
					Width:  it.width,
					Height: lh,
					Style:  it.style,
					Text:   it.text,
				}
				lb.Children = append(lb.Children, run)
			}
			x += it.width
		}
	}

	fr.box.Children = append(fr.box.Children, lb)
	f.y += h
	f.fresh = false
}
