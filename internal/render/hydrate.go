// Package render turns serialized documents into HTML pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

// attributeKeys lists the Data properties that become HTML attributes.
// Everything else in Data is plugin bookkeeping.
var attributeKeys = map[string]string{
	"id":              "id",
	"className":       "class",
	"class":           "class",
	"target":          "target",
	"rel":             "rel",
	"role":            "role",
	"aria-label":      "aria-label",
	"aria-labelledby": "aria-labelledby",
}

// Hydrate renders the document body to HTML without touching the original
// source.
func Hydrate(doc *content.Document) (template.HTML, error) {
	return HydrateTree(doc.Tree())
}

// HydrateTree renders an mdast tree to HTML.
func HydrateTree(tree *mdast.Node) (template.HTML, error) {
	if tree == nil {
		return "", nil
	}
	h := &hydrator{}
	nodes, err := h.children(tree, false)
	if err != nil {
		return "", err
	}
	if len(h.footnotes) > 0 {
		nodes = append(nodes, h.footnoteSection())
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			buf.WriteByte('\n')
		}
	}
	// #nosec G203 -- output is built from escaped html.Node values.
	return template.HTML(buf.String()), nil
}

type hydrator struct {
	footnotes []*mdast.Node
	inHeader  bool
}

func (h *hydrator) children(n *mdast.Node, tight bool) ([]*html.Node, error) {
	var out []*html.Node
	for _, child := range n.Children {
		if tight && child.Type == mdast.TypeParagraph {
			inner, err := h.children(child, false)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}
		if child.Type == mdast.TypeHTML && isPhrasing(n.Type) {
			// Inline tags arrive split (<b>, text, </b>), so they are emitted verbatim.
			out = append(out, &html.Node{Type: html.RawNode, Data: child.Value})
			continue
		}
		nodes, err := h.node(child)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (h *hydrator) node(n *mdast.Node) ([]*html.Node, error) {
	switch n.Type {
	case mdast.TypeText:
		return []*html.Node{text(n.Value)}, nil
	case mdast.TypeESM:
		return nil, nil
	case mdast.TypeHTML:
		return rawHTML(n.Value)
	case mdast.TypeFootnoteDefinition:
		h.footnotes = append(h.footnotes, n)
		return nil, nil
	case mdast.TypeCode:
		code := element(atom.Code)
		if n.Lang != "" {
			setAttr(code, "class", "language-"+n.Lang)
		}
		code.AppendChild(text(n.Value + "\n"))
		pre := element(atom.Pre)
		if n.Lang != "" {
			setAttr(pre, "class", "language-"+n.Lang)
		}
		pre.AppendChild(code)
		return []*html.Node{pre}, nil
	case mdast.TypeInlineCode:
		code := element(atom.Code)
		code.AppendChild(text(n.Value))
		return []*html.Node{code}, nil
	case mdast.TypeEmoji:
		span := element(atom.Span)
		applyData(span, n)
		span.AppendChild(text(n.Value))
		return []*html.Node{span}, nil
	case mdast.TypeFootnoteReference:
		return []*html.Node{footnoteRef(n)}, nil
	case mdast.TypeTable:
		return h.table(n)
	}

	el, tight := h.open(n)
	if el == nil {
		// Unknown node types render their children only.
		return h.children(n, false)
	}
	applyData(el, n)
	kids, err := h.children(n, tight)
	if err != nil {
		return nil, err
	}
	for _, k := range kids {
		el.AppendChild(k)
	}
	return []*html.Node{el}, nil
}

// open creates the element for a container node. tight reports whether child
// paragraphs should be unwrapped.
func (h *hydrator) open(n *mdast.Node) (*html.Node, bool) {
	switch n.Type {
	case mdast.TypeParagraph:
		return element(atom.P), false
	case mdast.TypeHeading:
		depth := n.Depth
		if depth < 1 || depth > 6 {
			depth = 6
		}
		return element(headingAtoms[depth-1]), false
	case mdast.TypeThematicBreak:
		return element(atom.Hr), false
	case mdast.TypeBlockquote:
		return element(atom.Blockquote), false
	case mdast.TypeList:
		if n.Ordered {
			ol := element(atom.Ol)
			if n.Start > 1 {
				setAttr(ol, "start", strconv.Itoa(n.Start))
			}
			return ol, false
		}
		return element(atom.Ul), false
	case mdast.TypeListItem:
		li := element(atom.Li)
		if n.Checked != nil {
			setAttr(li, "class", "task-list-item")
			box := element(atom.Input)
			setAttr(box, "type", "checkbox")
			setAttr(box, "disabled", "")
			if *n.Checked {
				setAttr(box, "checked", "")
			}
			li.AppendChild(box)
			li.AppendChild(text(" "))
		}
		return li, !n.Spread
	case mdast.TypeEmphasis:
		return element(atom.Em), false
	case mdast.TypeStrong:
		return element(atom.Strong), false
	case mdast.TypeDelete:
		return element(atom.Del), false
	case mdast.TypeBreak:
		return element(atom.Br), false
	case mdast.TypeLink:
		a := element(atom.A)
		setAttr(a, "href", safeURL(n.URL))
		if n.Title != "" {
			setAttr(a, "title", n.Title)
		}
		return a, false
	case mdast.TypeImage:
		img := element(atom.Img)
		setAttr(img, "src", safeURL(n.URL))
		setAttr(img, "alt", n.Alt)
		if n.Title != "" {
			setAttr(img, "title", n.Title)
		}
		setAttr(img, "loading", "lazy")
		return img, false
	case mdast.TypeSection:
		return element(atom.Section), false
	}
	return nil, false
}

func (h *hydrator) table(n *mdast.Node) ([]*html.Node, error) {
	table := element(atom.Table)
	applyData(table, n)
	var body *html.Node
	for i, row := range n.Children {
		tr := element(atom.Tr)
		for j, cell := range row.Children {
			tag := atom.Td
			if i == 0 {
				tag = atom.Th
			}
			c := element(tag)
			if j < len(n.Align) && n.Align[j] != "" {
				setAttr(c, "style", "text-align: "+n.Align[j])
			}
			kids, err := h.children(cell, false)
			if err != nil {
				return nil, err
			}
			for _, k := range kids {
				c.AppendChild(k)
			}
			tr.AppendChild(c)
		}
		if i == 0 {
			thead := element(atom.Thead)
			thead.AppendChild(tr)
			table.AppendChild(thead)
			continue
		}
		if body == nil {
			body = element(atom.Tbody)
			table.AppendChild(body)
		}
		body.AppendChild(tr)
	}
	return []*html.Node{table}, nil
}

func (h *hydrator) footnoteSection() *html.Node {
	defs := append([]*mdast.Node{}, h.footnotes...)
	sort.SliceStable(defs, func(i, j int) bool { return dataInt(defs[i], "index") < dataInt(defs[j], "index") })

	section := element(atom.Section)
	setAttr(section, "class", "footnotes")
	setAttr(section, "role", "doc-endnotes")
	ol := element(atom.Ol)
	for _, def := range defs {
		li := element(atom.Li)
		setAttr(li, "id", dataString(def, "id", "fn-"+def.Identifier))
		kids, _ := h.children(def, false)
		for _, k := range kids {
			li.AppendChild(k)
		}
		back := element(atom.A)
		setAttr(back, "href", dataString(def, "backref", "#fnref-"+def.Identifier))
		setAttr(back, "class", "footnote-backref")
		setAttr(back, "aria-label", "Back to content")
		back.AppendChild(text("↩"))
		if last := li.LastChild; last != nil && last.DataAtom == atom.P {
			last.AppendChild(text(" "))
			last.AppendChild(back)
		} else {
			li.AppendChild(back)
		}
		ol.AppendChild(li)
	}
	section.AppendChild(element(atom.Hr))
	section.AppendChild(ol)
	return section
}

func footnoteRef(n *mdast.Node) *html.Node {
	sup := element(atom.Sup)
	a := element(atom.A)
	setAttr(a, "href", dataString(n, "href", "#fn-"+n.Identifier))
	setAttr(a, "id", dataString(n, "id", "fnref-"+n.Identifier))
	setAttr(a, "class", "footnote-ref")
	label := n.Label
	if idx := dataInt(n, "index"); idx > 0 {
		label = strconv.Itoa(idx)
	}
	a.AppendChild(text(label))
	sup.AppendChild(a)
	return sup
}

func isPhrasing(typ string) bool {
	switch typ {
	case mdast.TypeParagraph, mdast.TypeHeading, mdast.TypeEmphasis, mdast.TypeStrong,
		mdast.TypeDelete, mdast.TypeLink, mdast.TypeTableCell:
		return true
	}
	return false
}

var headingAtoms = [6]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Hr, atom.Blockquote,
		atom.Ol, atom.Ul, atom.Pre, atom.Table, atom.Section, atom.Div:
		return true
	}
	return false
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// applyData copies the allowed Data properties onto el in sorted key order.
// safeURL blanks script-capable URLs such as javascript: and non-image data:
// so they never reach an href or src. Browsers ignore tabs and newlines in
// a scheme and leading control characters, so those are removed first.
func safeURL(u string) string {
	check := strings.TrimLeftFunc(u, func(r rune) bool { return r <= ' ' })
	check = strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(check)
	if gmhtml.IsDangerousURL([]byte(check)) {
		return ""
	}
	return u
}

func applyData(el *html.Node, n *mdast.Node) {
	if len(n.Data) == 0 {
		return
	}
	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		if _, ok := attributeKeys[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		var val string
		switch v := n.Data[k].(type) {
		case string:
			val = v
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			val = strings.Join(parts, " ")
		default:
			val = fmt.Sprint(v)
		}
		setAttr(el, attributeKeys[k], val)
	}
}

func dataString(n *mdast.Node, key, def string) string {
	if s, ok := n.DataString(key); ok && s != "" {
		return s
	}
	return def
}

// dataInt reads a numeric Data value. Decoded documents carry float64.
func dataInt(n *mdast.Node, key string) int {
	switch v := n.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func rawHTML(value string) ([]*html.Node, error) {
	ctx := element(atom.Div)
	nodes, err := html.ParseFragment(strings.NewReader(value), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse raw html: %w", err)
	}
	return nodes, nil
}
