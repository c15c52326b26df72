package plugins

import (
	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameSectionize = "sectionize"

type sectionize struct{}

func newSectionize(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameSectionize); err != nil {
		return nil, err
	}
	return sectionize{}, nil
}

func (sectionize) Name() string { return NameSectionize }

// Transform wraps every top-level heading together with the content up to the
// next heading of the same or a higher rank in a section. Deeper headings nest.
func (sectionize) Transform(tree *mdast.Node) error {
	tree.Children = wrapSections(tree.Children)
	return nil
}

func wrapSections(nodes []*mdast.Node) []*mdast.Node {
	if len(nodes) == 0 {
		return nodes
	}
	out := make([]*mdast.Node, 0, len(nodes))
	for i := 0; i < len(nodes); {
		h := nodes[i]
		if h.Type != mdast.TypeHeading {
			out = append(out, h)
			i++
			continue
		}
		j := i + 1
		for j < len(nodes) && (nodes[j].Type != mdast.TypeHeading || nodes[j].Depth > h.Depth) {
			j++
		}
		section := mdast.New(mdast.TypeSection, h)
		section.Depth = h.Depth
		section.Append(wrapSections(nodes[i+1 : j])...)
		if id, ok := h.DataString("id"); ok && id != "" {
			section.SetData("aria-labelledby", id)
		}
		out = append(out, section)
		i = j
	}
	return out
}
