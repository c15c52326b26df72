// Package mdast defines the document tree produced by the content parser and
// mutated by content plugins.
//
// The shape follows the mdast vocabulary (root, heading, paragraph, text, ...)
// so a serialized tree is readable without knowing which parser produced it.
// Nodes carry only plain values; there are no pointers back into source bytes,
// which keeps a tree self-contained once it is encoded.
package mdast

// Node types.
const (
	TypeRoot               = "root"
	TypeParagraph          = "paragraph"
	TypeHeading            = "heading"
	TypeThematicBreak      = "thematicBreak"
	TypeBlockquote         = "blockquote"
	TypeList               = "list"
	TypeListItem           = "listItem"
	TypeCode               = "code"
	TypeHTML               = "html"
	TypeText               = "text"
	TypeEmphasis           = "emphasis"
	TypeStrong             = "strong"
	TypeDelete             = "delete"
	TypeInlineCode         = "inlineCode"
	TypeBreak              = "break"
	TypeLink               = "link"
	TypeImage              = "image"
	TypeTable              = "table"
	TypeTableRow           = "tableRow"
	TypeTableCell          = "tableCell"
	TypeFootnoteReference  = "footnoteReference"
	TypeFootnoteDefinition = "footnoteDefinition"
	TypeEmoji              = "emoji"
	TypeSection            = "section"
	TypeESM                = "esm"
)

// Node is one element of the document tree.
//
// Data holds HTML-facing properties (id, target, rel, role, aria-label, ...).
// It is encoded as a JSON object, whose keys encoding/json sorts, so
// serialization stays deterministic.
type Node struct {
	Type       string         `json:"type"`
	Value      string         `json:"value,omitempty"`
	Depth      int            `json:"depth,omitempty"`
	Ordered    bool           `json:"ordered,omitempty"`
	Start      int            `json:"start,omitempty"`
	Spread     bool           `json:"spread,omitempty"`
	Checked    *bool          `json:"checked,omitempty"`
	Lang       string         `json:"lang,omitempty"`
	Meta       string         `json:"meta,omitempty"`
	URL        string         `json:"url,omitempty"`
	Title      string         `json:"title,omitempty"`
	Alt        string         `json:"alt,omitempty"`
	Identifier string         `json:"identifier,omitempty"`
	Label      string         `json:"label,omitempty"`
	Align      []string       `json:"align,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Children   []*Node        `json:"children,omitempty"`
}

// New returns a node of the given type with the given children.
func New(typ string, children ...*Node) *Node {
	return &Node{Type: typ, Children: children}
}

// NewText returns a text node.
func NewText(value string) *Node {
	return &Node{Type: TypeText, Value: value}
}

// SetData sets a property in the node's Data bag, allocating it on first use.
func (n *Node) SetData(key string, value any) {
	if n.Data == nil {
		n.Data = make(map[string]any)
	}
	n.Data[key] = value
}

// DataString returns a string property from Data.
func (n *Node) DataString(key string) (string, bool) {
	if n == nil || n.Data == nil {
		return "", false
	}
	s, ok := n.Data[key].(string)
	return s, ok
}

// Append adds children to the node.
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// IsEmpty reports whether the node has neither children nor a value.
func (n *Node) IsEmpty() bool {
	return len(n.Children) == 0 && n.Value == ""
}
