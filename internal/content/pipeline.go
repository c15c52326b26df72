// Package content turns Markdown and MDX source into a serialized document
// tree. Parsing is followed by an ordered list of plugins, each of which
// rewrites the tree in place; the final tree is encoded together with a
// caller-supplied Scope.
//
// A Pipeline is immutable once built and safe for concurrent use. Every
// Transform call parses into a fresh tree, so documents never share state.
package content

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

// StepObserver receives the duration and result of every plugin step. It is
// used for metrics only and never influences output.
type StepObserver interface {
	ObservePluginStep(plugin string, d time.Duration, err error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver attaches a StepObserver.
func WithObserver(o StepObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// Pipeline is an ordered, immutable list of plugins plus the parser they
// configure.
type Pipeline struct {
	plugins   []Plugin
	extenders []goldmark.Extender
	signature string
	observer  StepObserver
	markdowns sync.Pool
}

// NewPipeline validates plugins and prepares the parser configuration.
// Syntax extenders are collected in plugin order.
func NewPipeline(plugins []Plugin, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{plugins: make([]Plugin, 0, len(plugins))}
	sig := make([]string, 0, len(plugins))
	for i, pl := range plugins {
		if pl == nil {
			return nil, fmt.Errorf("plugin at step %d is nil", i+1)
		}
		name := pl.Name()
		if name == "" {
			return nil, fmt.Errorf("plugin at step %d has no name", i+1)
		}
		p.plugins = append(p.plugins, pl)
		if se, ok := pl.(SyntaxExtender); ok {
			p.extenders = append(p.extenders, se.Extenders()...)
		}
		if c, ok := pl.(Configured); ok {
			name += "(" + c.Options() + ")"
		}
		sig = append(sig, name)
	}
	p.signature = fmt.Sprintf("v%d:%s", DocumentVersion, strings.Join(sig, ","))
	for _, opt := range opts {
		opt(p)
	}
	p.markdowns.New = func() any {
		return goldmark.New(goldmark.WithExtensions(p.extenders...))
	}
	return p, nil
}

// Plugins returns the plugin names in execution order.
func (p *Pipeline) Plugins() []string {
	names := make([]string, len(p.plugins))
	for i, pl := range p.plugins {
		names[i] = pl.Name()
	}
	return names
}

// Signature identifies the plugin list and its options. Two pipelines with
// the same signature produce identical documents for identical input.
func (p *Pipeline) Signature() string { return p.signature }

// Parse returns the tree for src before any plugin runs. A kind other than
// Markdown or MDX is a *ParseError.
func (p *Pipeline) Parse(src Source) (*mdast.Node, error) {
	switch src.Kind {
	case "":
		src.Kind = KindMarkdown
	case KindMarkdown, KindMDX:
	default:
		return nil, &ParseError{Kind: src.Kind, Reason: "unknown content kind"}
	}
	md := p.markdowns.Get().(goldmark.Markdown)
	defer p.markdowns.Put(md)
	return parse(md, src)
}

// Transform parses src, runs every plugin in order and encodes the result
// with a copy of scope. The first failing plugin aborts the run; no partial
// document is returned.
func (p *Pipeline) Transform(src Source, scope Scope) (*Document, error) {
	if src.Kind == "" {
		src.Kind = KindMarkdown
	}
	tree, err := p.Parse(src)
	if err != nil {
		return nil, err
	}
	for i, pl := range p.plugins {
		if err := p.apply(i+1, pl, tree); err != nil {
			return nil, err
		}
	}
	return NewDocument(src.Kind, scope, tree)
}

func (p *Pipeline) apply(step int, pl Plugin, tree *mdast.Node) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PluginError{Plugin: pl.Name(), Step: step, Err: fmt.Errorf("panic: %v", r)}
		}
		if p.observer != nil {
			p.observer.ObservePluginStep(pl.Name(), time.Since(start), err)
		}
	}()

	// A *PluginError returned by a plugin that runs others is wrapped too, so
	// Plugin and Step always name this pipeline's failing step.
	if terr := pl.Transform(tree); terr != nil {
		return &PluginError{Plugin: pl.Name(), Step: step, Err: terr}
	}
	if tree.Type != mdast.TypeRoot {
		return &PluginError{Plugin: pl.Name(), Step: step, Err: fmt.Errorf("root replaced by %q node", tree.Type)}
	}
	return nil
}

// Transform is a convenience for a one-off pipeline.
func Transform(src Source, scope Scope, plugins []Plugin) (*Document, error) {
	p, err := NewPipeline(plugins)
	if err != nil {
		return nil, err
	}
	return p.Transform(src, scope)
}
