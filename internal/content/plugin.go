package content

import (
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

// Plugin is one tree-to-tree step of a pipeline. Transform mutates the tree in
// place and must be deterministic: the same tree always yields the same result.
type Plugin interface {
	Name() string
	Transform(tree *mdast.Node) error
}

// SyntaxExtender is implemented by plugins that need the parser to recognize
// additional syntax (tables, footnotes, emoji shortcodes). Extenders are
// registered with the parser in pipeline order before any tree step runs.
type SyntaxExtender interface {
	Extenders() []goldmark.Extender
}

// Configured is implemented by plugins whose behavior depends on options. The
// returned string must change whenever output would change; it feeds the
// pipeline signature used for cache keys.
type Configured interface {
	Options() string
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc struct {
	name string
	fn   func(tree *mdast.Node) error
}

// NewPluginFunc returns a Plugin named name that runs fn.
func NewPluginFunc(name string, fn func(tree *mdast.Node) error) PluginFunc {
	return PluginFunc{name: name, fn: fn}
}

func (p PluginFunc) Name() string { return p.name }

func (p PluginFunc) Transform(tree *mdast.Node) error {
	if p.fn == nil {
		return nil
	}
	return p.fn(tree)
}
