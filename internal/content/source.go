package content

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the declared syntax of a document source.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindMDX      Kind = "mdx"
)

// ParseKind maps a textual kind (or MIME-like alias) to a Kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "markdown", "md", "text/markdown":
		return KindMarkdown, nil
	case "mdx", "text/mdx":
		return KindMDX, nil
	default:
		return "", fmt.Errorf("unknown content kind %q", raw)
	}
}

// KindFromPath derives the kind from a file extension. Anything that is not
// .mdx is treated as plain Markdown.
func KindFromPath(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), ".mdx") {
		return KindMDX
	}
	return KindMarkdown
}

// Source is the raw, unparsed text of one document.
type Source struct {
	Kind Kind
	Text string
}

// NewSource returns a Source of the given kind. An empty kind means Markdown;
// kinds other than Markdown and MDX are kept as given and rejected when the
// source is parsed.
func NewSource(kind Kind, text string) Source {
	if kind == "" {
		kind = KindMarkdown
	}
	return Source{Kind: kind, Text: text}
}
