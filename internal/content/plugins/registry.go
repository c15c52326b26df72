// Package plugins provides the built-in content plugins and a registry that
// resolves configured plugin lists into a concrete, ordered pipeline.
package plugins

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/postbuilder/internal/content"
)

// Factory builds a configured plugin. Options are resolved eagerly so bad
// configuration fails before any document is transformed.
type Factory func(opts Options) (content.Plugin, error)

// Ordering declares soft ordering hints between plugins. They never reorder a
// configured list; they only produce validation warnings and drive Recommend.
type Ordering struct {
	MustRunAfter  []string
	MustRunBefore []string
}

// Descriptor describes a registered plugin.
type Descriptor struct {
	Name        string
	Description string
	Ordering    Ordering
	Factory     Factory
}

// Spec selects a plugin and its options.
type Spec struct {
	Name    string
	Options Options
}

// Registry maps plugin names to descriptors.
type Registry struct {
	byName map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor. Registering the same name twice is an error.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Factory == nil {
		return fmt.Errorf("plugin descriptor requires a name and a factory")
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("duplicate plugin name: %q", d.Name)
	}
	r.byName[d.Name] = d
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Descriptors returns all descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build resolves specs into plugins, preserving the given order.
func (r *Registry) Build(specs []Spec) ([]content.Plugin, error) {
	out := make([]content.Plugin, 0, len(specs))
	for i, s := range specs {
		d, ok := r.byName[s.Name]
		if !ok {
			return nil, fmt.Errorf("step %d: unknown plugin %q", i+1, s.Name)
		}
		p, err := d.Factory(s.Options)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// DefaultOrder is the plugin list used when none is configured.
var DefaultOrder = []string{
	NameA11yEmoji,
	NameBreaks,
	NameGFM,
	NameFootnotes,
	NameExternalLinks,
	NameSlug,
	NameSectionize,
}

// DefaultSpecs returns DefaultOrder as specs without options.
func DefaultSpecs() []Spec {
	specs := make([]Spec, len(DefaultOrder))
	for i, name := range DefaultOrder {
		specs[i] = Spec{Name: name}
	}
	return specs
}

// Builtin returns a registry holding every built-in plugin.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{
			Name:        NameA11yEmoji,
			Description: "recognizes emoji shortcodes and wraps emoji with role=img and an aria-label",
			Factory:     newA11yEmoji,
		},
		{
			Name:        NameBreaks,
			Description: "turns soft line breaks inside paragraphs into hard breaks",
			Factory:     newBreaks,
		},
		{
			Name:        NameGFM,
			Description: "enables tables, strikethrough, task lists and autolinks",
			Factory:     newGFM,
		},
		{
			Name:        NameFootnotes,
			Description: "enables footnotes and numbers them in reference order",
			Factory:     newFootnotes,
		},
		{
			Name:        NameExternalLinks,
			Description: "marks off-site links with target and rel attributes",
			Ordering:    Ordering{MustRunAfter: []string{NameGFM}},
			Factory:     newExternalLinks,
		},
		{
			Name:        NameSlug,
			Description: "assigns unique ids to headings",
			Factory:     newSlug,
		},
		{
			Name:        NameSectionize,
			Description: "wraps each heading and its following content in a section",
			Ordering:    Ordering{MustRunAfter: []string{NameSlug}},
			Factory:     newSectionize,
		},
		{
			Name:        NameHeadingCase,
			Description: "changes the letter case of heading text",
			Ordering:    Ordering{MustRunBefore: []string{NameSlug}},
			Factory:     newHeadingCase,
		},
	} {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}
