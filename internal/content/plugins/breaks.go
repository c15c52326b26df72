package plugins

import (
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameBreaks = "breaks"

type breaks struct{}

func newBreaks(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameBreaks); err != nil {
		return nil, err
	}
	return breaks{}, nil
}

func (breaks) Name() string { return NameBreaks }

// Transform splits text on newlines and inserts a break node between the
// pieces. Code values are untouched.
func (breaks) Transform(tree *mdast.Node) error {
	return mdast.Walk(tree, func(n, _ *mdast.Node, _ int) (mdast.WalkStatus, error) {
		if !hasNewlineText(n) {
			return mdast.WalkContinue, nil
		}
		out := make([]*mdast.Node, 0, len(n.Children))
		for _, child := range n.Children {
			if child.Type != mdast.TypeText || !strings.Contains(child.Value, "\n") {
				out = append(out, child)
				continue
			}
			parts := strings.Split(child.Value, "\n")
			for i, part := range parts {
				if i > 0 {
					out = append(out, mdast.New(mdast.TypeBreak))
				}
				if i < len(parts)-1 {
					part = strings.TrimRight(part, " \t")
				}
				if part != "" {
					out = append(out, mdast.NewText(part))
				}
			}
		}
		n.Children = out
		return mdast.WalkContinue, nil
	})
}

func hasNewlineText(n *mdast.Node) bool {
	for _, c := range n.Children {
		if c.Type == mdast.TypeText && strings.Contains(c.Value, "\n") {
			return true
		}
	}
	return false
}
