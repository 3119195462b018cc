package layout

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// node is an element or text node with its computed style.
type node struct {
	tag      string // empty for text
	text     string
	style    *Style
	html     *html.Node
	marker   string // list item marker
	children []*node
}

func (n *node) isText() bool { return n.tag == "" }

// blockLevel reports whether n starts a block in its parent's flow.
func (n *node) blockLevel() bool {
	if n.isText() {
		return false
	}
	switch n.style.Display {
	case "block", "list-item":
		return true
	}
	return n.style.Position == "fixed"
}

// buildTree styles the element hn and its descendants.
func buildTree(hn *html.Node, parent *Style, c *cascade) *node {
	st := c.compute(hn, parent)
	if st.Display == "none" {
		return nil
	}
	n := &node{tag: hn.Data, style: st, html: hn}

	if st.HasContent {
		n.children = []*node{{text: resolveContent(st, hn), style: st}}
		return n
	}

	itemIndex := listStart(hn)
	for child := hn.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if child.Data != "" {
				n.children = append(n.children, &node{text: child.Data, style: st})
			}
		case html.ElementNode:
			switch child.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Title, atom.Meta, atom.Link, atom.Template:
				continue
			}
			cn := buildTree(child, st, c)
			if cn == nil {
				continue
			}
			if cn.style.Display == "list-item" {
				cn.marker = listMarker(hn, itemIndex)
				itemIndex++
			}
			n.children = append(n.children, cn)
		}
	}
	return n
}

// listStart returns the first ordinal of an ordered list.
func listStart(hn *html.Node) int {
	if hn.DataAtom == atom.Ol {
		if v, err := strconv.Atoi(attr(hn, "start")); err == nil {
			return v
		}
	}
	return 1
}

// listMarker returns the marker of the index-th item of list.
func listMarker(list *html.Node, index int) string {
	if list.DataAtom == atom.Ol {
		return strconv.Itoa(index) + ". "
	}
	return "• "
}

// resolveContent renders a content value for element hn.
func resolveContent(st *Style, hn *html.Node) string {
	var b strings.Builder
	for _, item := range st.Content {
		switch {
		case item.Counter != "":
			b.WriteString(strconv.Itoa(st.Counter(item.Counter)))
		case item.Attr != "":
			b.WriteString(attr(hn, item.Attr))
		default:
			b.WriteString(item.Literal)
		}
	}
	return b.String()
}

// findElement returns the first element with atom a in pre-order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// collectStyles returns the text of every <style> element in document order.
func collectStyles(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			out = append(out, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// documentTitle returns the trimmed text of the first <title>.
func documentTitle(root *html.Node) string {
	t := findElement(root, atom.Title)
	if t == nil {
		return ""
	}
	var b strings.Builder
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
