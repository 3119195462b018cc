package pipeline

import "strings"

// InjectStyles inserts one <style> block per stylesheet before </head>, in
// order. Without a head the blocks go right after <body>, else in front of
// the document.
func InjectStyles(document string, sheets ...string) string {
	var blocks strings.Builder
	for _, css := range sheets {
		if strings.TrimSpace(css) == "" {
			continue
		}
		blocks.WriteString("<style>")
		blocks.WriteString(sanitizeCSS(css))
		blocks.WriteString("</style>\n")
	}
	if blocks.Len() == 0 {
		return document
	}
	styles := blocks.String()
	lower := strings.ToLower(document)

	if idx := strings.Index(lower, "</head>"); idx != -1 {
		return document[:idx] + styles + document[idx:]
	}
	if idx := strings.Index(lower, "<body"); idx != -1 {
		if end := strings.Index(document[idx:], ">"); end != -1 {
			pos := idx + end + 1
			return document[:pos] + styles + document[pos:]
		}
	}
	return styles + document
}

// sanitizeCSS keeps a stylesheet from closing its <style> element early.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
