package content

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	emojiast "github.com/yuin/goldmark-emoji/ast"
	gast "github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

// parse turns source text into an mdast tree using md's parser.
func parse(md goldmark.Markdown, src Source) (*mdast.Node, error) {
	lines := splitLines(src.Text)
	if err := checkFences(src.Kind, lines); err != nil {
		return nil, err
	}

	var esm []string
	body := lines
	if src.Kind == KindMDX {
		mask, _ := fenceMask(lines)
		body, esm = extractESM(lines, mask)
		if err := checkExpressions(src.Kind, body, mask); err != nil {
			return nil, err
		}
	}

	source := []byte(strings.Join(body, "\n"))
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(parser.NewContext()))

	c := newConverter(source, doc)
	root := c.convert(doc)
	if len(esm) > 0 {
		nodes := make([]*mdast.Node, 0, len(esm)+len(root.Children))
		for _, block := range esm {
			nodes = append(nodes, &mdast.Node{Type: mdast.TypeESM, Value: block})
		}
		root.Children = append(nodes, root.Children...)
	}
	mergeText(root)
	return root, nil
}

type converter struct {
	source    []byte
	footnotes map[int][]byte
}

func newConverter(source []byte, doc gast.Node) *converter {
	c := &converter{source: source, footnotes: map[int][]byte{}}
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if fn, ok := n.(*extast.Footnote); ok && entering {
			c.footnotes[fn.Index] = fn.Ref
		}
		return gast.WalkContinue, nil
	})
	return c
}

func (c *converter) children(n gast.Node) []*mdast.Node {
	var out []*mdast.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = append(out, c.convertAll(child)...)
	}
	return out
}

// convertAll converts one goldmark node into zero or more mdast nodes.
func (c *converter) convertAll(n gast.Node) []*mdast.Node {
	switch node := n.(type) {
	case *gast.Text:
		return c.text(node)
	case *extast.FootnoteList:
		// Definitions are lifted to the parent so they sit beside the content.
		return c.children(node)
	case *extast.FootnoteBacklink, *extast.TaskCheckBox:
		return nil
	}
	if out := c.convert(n); out != nil {
		return []*mdast.Node{out}
	}
	return nil
}

func (c *converter) convert(n gast.Node) *mdast.Node {
	switch node := n.(type) {
	case *gast.Document:
		return mdast.New(mdast.TypeRoot, c.children(node)...)
	case *gast.Paragraph, *gast.TextBlock:
		return mdast.New(mdast.TypeParagraph, c.children(node)...)
	case *gast.Heading:
		h := mdast.New(mdast.TypeHeading, c.children(node)...)
		h.Depth = node.Level
		return h
	case *gast.ThematicBreak:
		return mdast.New(mdast.TypeThematicBreak)
	case *gast.Blockquote:
		return mdast.New(mdast.TypeBlockquote, c.children(node)...)
	case *gast.List:
		l := mdast.New(mdast.TypeList, c.children(node)...)
		l.Ordered = node.IsOrdered()
		if l.Ordered {
			l.Start = node.Start
		}
		l.Spread = !node.IsTight
		for _, item := range l.Children {
			item.Spread = l.Spread
		}
		return l
	case *gast.ListItem:
		return c.listItem(node)
	case *gast.FencedCodeBlock:
		code := &mdast.Node{Type: mdast.TypeCode, Value: c.lines(node)}
		if node.Info != nil {
			info := strings.TrimSpace(string(node.Info.Segment.Value(c.source)))
			lang, meta, _ := strings.Cut(info, " ")
			code.Lang = lang
			code.Meta = strings.TrimSpace(meta)
		}
		return code
	case *gast.CodeBlock:
		return &mdast.Node{Type: mdast.TypeCode, Value: c.lines(node)}
	case *gast.HTMLBlock:
		value := c.lines(node)
		if node.HasClosure() {
			closure := strings.TrimRight(string(node.ClosureLine.Value(c.source)), "\n")
			if value != "" {
				value += "\n"
			}
			value += closure
		}
		return &mdast.Node{Type: mdast.TypeHTML, Value: value}
	case *gast.String:
		if node.IsCode() || node.IsRaw() {
			return mdast.NewText(string(node.Value))
		}
		return mdast.NewText(unescape(node.Value))
	case *gast.CodeSpan:
		return &mdast.Node{Type: mdast.TypeInlineCode, Value: c.rawText(node)}
	case *gast.Emphasis:
		typ := mdast.TypeEmphasis
		if node.Level >= 2 {
			typ = mdast.TypeStrong
		}
		return mdast.New(typ, c.children(node)...)
	case *gast.Link:
		l := mdast.New(mdast.TypeLink, c.children(node)...)
		l.URL = unescape(node.Destination)
		l.Title = unescape(node.Title)
		return l
	case *gast.Image:
		alt := mdast.New(mdast.TypeParagraph, c.children(node)...)
		return &mdast.Node{
			Type:  mdast.TypeImage,
			URL:   unescape(node.Destination),
			Title: unescape(node.Title),
			Alt:   mdast.TextContent(alt),
		}
	case *gast.AutoLink:
		url := string(node.URL(c.source))
		if node.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		l := mdast.New(mdast.TypeLink, mdast.NewText(string(node.Label(c.source))))
		l.URL = url
		return l
	case *gast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(c.source))
		}
		return &mdast.Node{Type: mdast.TypeHTML, Value: buf.String()}
	case *extast.Strikethrough:
		return mdast.New(mdast.TypeDelete, c.children(node)...)
	case *extast.Table:
		t := mdast.New(mdast.TypeTable, c.children(node)...)
		t.Align = make([]string, len(node.Alignments))
		for i, a := range node.Alignments {
			t.Align[i] = alignment(a)
		}
		return t
	case *extast.TableHeader, *extast.TableRow:
		return mdast.New(mdast.TypeTableRow, c.children(node)...)
	case *extast.TableCell:
		return mdast.New(mdast.TypeTableCell, c.children(node)...)
	case *extast.Footnote:
		def := mdast.New(mdast.TypeFootnoteDefinition, c.children(node)...)
		def.Label = string(node.Ref)
		def.Identifier = footnoteID(node.Ref)
		return def
	case *extast.FootnoteLink:
		ref := &mdast.Node{Type: mdast.TypeFootnoteReference}
		label := c.footnotes[node.Index]
		ref.Label = string(label)
		ref.Identifier = footnoteID(label)
		return ref
	case *emojiast.Emoji:
		e := &mdast.Node{Type: mdast.TypeEmoji}
		if node.Value != nil {
			e.Value = string(node.Value.Unicode)
			e.Label = node.Value.Name
		}
		e.SetData("shortcode", string(node.ShortName))
		return e
	default:
		// Unknown extension nodes keep their kind name so plugins can still
		// match on them.
		kind := n.Kind().String()
		if kind != "" {
			kind = strings.ToLower(kind[:1]) + kind[1:]
		}
		return mdast.New(kind, c.children(n)...)
	}
}

func (c *converter) text(node *gast.Text) []*mdast.Node {
	raw := node.Segment.Value(c.source)
	value := string(raw)
	if !node.IsRaw() {
		value = unescape(raw)
	}
	if node.SoftLineBreak() {
		value += "\n"
	}
	out := []*mdast.Node{mdast.NewText(value)}
	if node.HardLineBreak() {
		out = append(out, mdast.New(mdast.TypeBreak))
	}
	return out
}

func (c *converter) listItem(node *gast.ListItem) *mdast.Node {
	item := mdast.New(mdast.TypeListItem)
	if first := node.FirstChild(); first != nil {
		if box, ok := first.FirstChild().(*extast.TaskCheckBox); ok {
			checked := box.IsChecked
			item.Checked = &checked
		}
	}
	item.Children = c.children(node)
	if item.Checked != nil && len(item.Children) > 0 {
		trimLeadingSpace(item.Children[0])
	}
	return item
}

func (c *converter) lines(n gast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// rawText concatenates the text of a node's descendants verbatim.
func (c *converter) rawText(n gast.Node) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *gast.Text:
			buf.Write(t.Segment.Value(c.source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *gast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(c.rawText(child))
		}
	}
	return buf.String()
}

func trimLeadingSpace(n *mdast.Node) {
	if len(n.Children) == 0 {
		return
	}
	if first := n.Children[0]; first.Type == mdast.TypeText {
		first.Value = strings.TrimLeft(first.Value, " \t")
	}
}

func alignment(a extast.Alignment) string {
	switch a {
	case extast.AlignLeft:
		return "left"
	case extast.AlignRight:
		return "right"
	case extast.AlignCenter:
		return "center"
	default:
		return ""
	}
}

func footnoteID(label []byte) string {
	return strings.ToLower(string(label))
}

// mergeText joins adjacent text siblings and drops empty text nodes.
func mergeText(n *mdast.Node) {
	if len(n.Children) == 0 {
		return
	}
	out := n.Children[:0]
	for _, child := range n.Children {
		mergeText(child)
		if child.Type == mdast.TypeText {
			if child.Value == "" {
				continue
			}
			if k := len(out); k > 0 && out[k-1].Type == mdast.TypeText && out[k-1].Data == nil && child.Data == nil {
				out[k-1].Value += child.Value
				continue
			}
		}
		out = append(out, child)
	}
	if len(out) == 0 {
		out = nil
	}
	n.Children = out
}

// unescape resolves backslash escapes and character references in inline
// text. An escaped '&' never starts a reference.
func unescape(b []byte) string {
	var sb strings.Builder
	start := 0
	flush := func(end int) {
		sb.Write(util.ResolveEntityNames(util.ResolveNumericReferences(b[start:end])))
	}
	for i := 0; i < len(b)-1; i++ {
		if b[i] == '\\' && util.IsPunct(b[i+1]) {
			flush(i)
			sb.WriteByte(b[i+1])
			i++
			start = i + 1
		}
	}
	flush(len(b))
	return sb.String()
}
