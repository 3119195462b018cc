package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmaupetit/md2pdf/internal/yamlutil"
)

// ErrFrontMatter indicates a front matter block that is not valid YAML.
var ErrFrontMatter = errors.New("invalid front matter")

// frontMatterDelimiter opens and closes a front matter block.
const frontMatterDelimiter = "---"

// ExtractFrontMatter splits a leading YAML block delimited by "---" lines
// from the Markdown body. The block may be closed by "---" or "...".
// Content without a front matter block is returned unchanged with a nil map.
func ExtractFrontMatter(content string) (map[string]any, string, error) {
	text := strings.TrimPrefix(normalizeLineEndings(content), "\ufeff")

	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, " \t") != frontMatterDelimiter {
		return nil, content, nil
	}

	lines := strings.SplitAfter(rest, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\n")
		if trimmed == frontMatterDelimiter || trimmed == "..." {
			block := rest[:offset]
			body := rest[offset+len(line):]
			meta, err := parseFrontMatter(block)
			if err != nil {
				return nil, content, err
			}
			return meta, body, nil
		}
		offset += len(line)
	}

	// No closing delimiter: a thematic break, not front matter.
	return nil, content, nil
}

func parseFrontMatter(block string) (map[string]any, error) {
	if strings.TrimSpace(block) == "" {
		return map[string]any{}, nil
	}
	meta, err := yamlutil.UnmarshalMapping([]byte(block))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrontMatter, err)
	}
	return meta, nil
}

// reservedContextKey holds the rendered body in the base template and can
// never be set by callers.
const reservedContextKey = "content"

// MergeContext returns a new map with the caller context overlaid by the
// front matter values. The reserved "content" key is dropped from both.
func MergeContext(base, front map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(front))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range front {
		merged[k] = v
	}
	delete(merged, reservedContextKey)
	return merged
}
