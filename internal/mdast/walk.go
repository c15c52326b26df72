package mdast

import "strings"

// WalkStatus controls traversal from a Visitor.
type WalkStatus int

const (
	WalkContinue WalkStatus = iota
	WalkSkipChildren
	WalkStop
)

// Visitor is called for every node in depth-first pre-order. parent is nil for the root.
type Visitor func(n, parent *Node, index int) (WalkStatus, error)

// Walk traverses the tree rooted at n. The visitor may replace n.Children of
// the node it is visiting; traversal reads the slice after the visitor returns.
func Walk(n *Node, visit Visitor) error {
	_, err := walk(n, nil, 0, visit)
	return err
}

func walk(n, parent *Node, index int, visit Visitor) (WalkStatus, error) {
	status, err := visit(n, parent, index)
	if err != nil || status == WalkStop {
		return WalkStop, err
	}
	if status == WalkSkipChildren {
		return WalkContinue, nil
	}
	for i := 0; i < len(n.Children); i++ {
		st, err := walk(n.Children[i], n, i, visit)
		if err != nil || st == WalkStop {
			return WalkStop, err
		}
	}
	return WalkContinue, nil
}

// FindAll returns every node of the given type in document order.
func FindAll(root *Node, typ string) []*Node {
	var out []*Node
	_ = Walk(root, func(n, _ *Node, _ int) (WalkStatus, error) {
		if n.Type == typ {
			out = append(out, n)
		}
		return WalkContinue, nil
	})
	return out
}

// Find returns the first node of the given type, or nil.
func Find(root *Node, typ string) *Node {
	var found *Node
	_ = Walk(root, func(n, _ *Node, _ int) (WalkStatus, error) {
		if n.Type == typ {
			found = n
			return WalkStop, nil
		}
		return WalkContinue, nil
	})
	return found
}

// TextContent concatenates the literal text below n: text and inline code
// values, image alt text, and emoji values. Breaks count as a single space.
func TextContent(n *Node) string {
	var b strings.Builder
	_ = Walk(n, func(c, _ *Node, _ int) (WalkStatus, error) {
		switch c.Type {
		case TypeText, TypeInlineCode, TypeEmoji:
			b.WriteString(c.Value)
		case TypeImage:
			b.WriteString(c.Alt)
		case TypeBreak:
			b.WriteByte(' ')
		}
		return WalkContinue, nil
	})
	return b.String()
}

// Clone returns a deep copy of the tree rooted at n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Checked != nil {
		v := *n.Checked
		cp.Checked = &v
	}
	if n.Align != nil {
		cp.Align = append([]string(nil), n.Align...)
	}
	if n.Data != nil {
		cp.Data = cloneData(n.Data)
	}
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = Clone(c)
		}
	}
	return &cp
}

func cloneData(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch tv := v.(type) {
		case []string:
			out[k] = append([]string(nil), tv...)
		case []any:
			out[k] = append([]any(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}
