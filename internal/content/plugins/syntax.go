package plugins

import (
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const (
	NameGFM       = "gfm"
	NameFootnotes = "footnotes"
)

type gfm struct{}

func newGFM(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameGFM); err != nil {
		return nil, err
	}
	return gfm{}, nil
}

func (gfm) Name() string { return NameGFM }

func (gfm) Extenders() []goldmark.Extender { return []goldmark.Extender{extension.GFM} }

// Transform pads or truncates table rows to the column count of the
// delimiter row.
func (gfm) Transform(tree *mdast.Node) error {
	for _, table := range mdast.FindAll(tree, mdast.TypeTable) {
		cols := len(table.Align)
		if cols == 0 {
			continue
		}
		for _, row := range table.Children {
			if row.Type != mdast.TypeTableRow {
				continue
			}
			if len(row.Children) > cols {
				row.Children = row.Children[:cols]
			}
			for len(row.Children) < cols {
				row.Append(mdast.New(mdast.TypeTableCell))
			}
		}
	}
	return nil
}

type footnotes struct{}

func newFootnotes(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameFootnotes); err != nil {
		return nil, err
	}
	return footnotes{}, nil
}

func (footnotes) Name() string { return NameFootnotes }

func (footnotes) Extenders() []goldmark.Extender { return []goldmark.Extender{extension.Footnote} }

// Transform numbers definitions in order of first reference and links
// references and definitions to each other. Unreferenced definitions are
// dropped.
func (footnotes) Transform(tree *mdast.Node) error {
	numbers := map[string]int{}
	refCount := map[string]int{}
	for _, ref := range mdast.FindAll(tree, mdast.TypeFootnoteReference) {
		n, ok := numbers[ref.Identifier]
		if !ok {
			n = len(numbers) + 1
			numbers[ref.Identifier] = n
		}
		refCount[ref.Identifier]++
		suffix := ""
		if c := refCount[ref.Identifier]; c > 1 {
			suffix = "-" + strconv.Itoa(c)
		}
		ref.SetData("index", n)
		ref.SetData("id", "fnref-"+ref.Identifier+suffix)
		ref.SetData("href", "#fn-"+ref.Identifier)
	}

	return mdast.Walk(tree, func(n, _ *mdast.Node, _ int) (mdast.WalkStatus, error) {
		if len(n.Children) == 0 {
			return mdast.WalkContinue, nil
		}
		kept := n.Children[:0]
		for _, child := range n.Children {
			if child.Type == mdast.TypeFootnoteDefinition {
				num, ok := numbers[child.Identifier]
				if !ok {
					continue
				}
				child.SetData("index", num)
				child.SetData("id", "fn-"+child.Identifier)
				child.SetData("backref", "#fnref-"+child.Identifier)
			}
			kept = append(kept, child)
		}
		n.Children = kept
		return mdast.WalkContinue, nil
	})
}
