package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// linkedResources selects the attributes that may hold a relative path.
// Media, srcset and CSS url() references are left alone.
var linkedResources = []struct {
	selector cascadia.Selector
	attr     string
}{
	{cascadia.MustCompile("img[src]"), "src"},
	{cascadia.MustCompile("a[href]"), "href"},
	{cascadia.MustCompile(`link[rel="stylesheet"][href]`), "href"},
}

// RewriteRelativePaths converts relative image, link and stylesheet paths of
// a full HTML document to absolute file:// URLs under baseDir. Paths that
// would escape baseDir are left as written. An empty baseDir returns the
// document unchanged.
func RewriteRelativePaths(document, baseDir string) (string, error) {
	if baseDir == "" {
		return document, nil
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", err
	}

	for _, res := range linkedResources {
		for _, n := range cascadia.QueryAll(doc, res.selector) {
			rewriteAttr(n, res.attr, absBase)
		}
	}

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rewriteAttr(n *html.Node, key, baseDir string) {
	for i, attr := range n.Attr {
		if attr.Key != key || !isRelativePath(attr.Val) {
			continue
		}
		abs := filepath.Join(baseDir, filepath.FromSlash(attr.Val))
		if !isPathUnderDir(abs, baseDir) {
			continue
		}
		n.Attr[i].Val = PathToFileURL(abs)
	}
}

func isRelativePath(path string) bool {
	if path == "" || strings.HasPrefix(path, "#") || strings.HasPrefix(path, "//") {
		return false
	}
	if u, err := url.Parse(path); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return false
	}
	return !filepath.IsAbs(path)
}

func isPathUnderDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PathToFileURL converts an absolute path to a file:// URL.
func PathToFileURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive letter
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
