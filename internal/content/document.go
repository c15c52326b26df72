package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

// DocumentVersion is the wire format version written into every document.
const DocumentVersion = 1

// Document is the immutable result of a transform: the final tree, the source
// kind and the embedded scope. It is encoded once on construction; accessors
// hand out copies.
type Document struct {
	kind    Kind
	scope   Scope
	tree    *mdast.Node
	encoded []byte
}

type wireDocument struct {
	Version int         `json:"version"`
	Kind    Kind        `json:"kind"`
	Scope   Scope       `json:"scope"`
	Tree    *mdast.Node `json:"tree"`
}

// NewDocument copies scope and tree and encodes them.
func NewDocument(kind Kind, scope Scope, tree *mdast.Node) (*Document, error) {
	if tree == nil {
		tree = mdast.New(mdast.TypeRoot)
	}
	d := &Document{kind: kind, scope: scope.Clone(), tree: mdast.Clone(tree)}
	b, err := json.Marshal(wireDocument{Version: DocumentVersion, Kind: kind, Scope: d.scope, Tree: d.tree})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	d.encoded = b
	return d, nil
}

// Decode reads a document previously produced by Bytes.
func Decode(b []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if w.Version != DocumentVersion {
		return nil, fmt.Errorf("decode document: unsupported version %d", w.Version)
	}
	if w.Tree == nil || w.Tree.Type != mdast.TypeRoot {
		return nil, fmt.Errorf("decode document: missing root")
	}
	return &Document{kind: w.Kind, scope: w.Scope, tree: w.Tree, encoded: bytes.Clone(b)}, nil
}

func (d *Document) Kind() Kind { return d.kind }

// Scope returns a copy of the embedded scope.
func (d *Document) Scope() Scope { return d.scope.Clone() }

// Tree returns a copy of the final tree.
func (d *Document) Tree() *mdast.Node { return mdast.Clone(d.tree) }

// Bytes returns a copy of the serialized form.
func (d *Document) Bytes() []byte { return bytes.Clone(d.encoded) }

// Equal reports whether both documents serialize identically.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return bytes.Equal(d.encoded, other.encoded)
}
