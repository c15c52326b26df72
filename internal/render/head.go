package render

import (
	"bytes"
	"html/template"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PrismThemeID identifies the syntax highlighting stylesheet in a Head.
const PrismThemeID = "prism-theme"

// Head collects extra <head> markup for one page. Resources attached with
// AttachOnce appear at most once, however often they are requested.
type Head struct {
	mu       sync.Mutex
	attached map[string]struct{}
	parts    []template.HTML
}

// NewHead returns an empty Head.
func NewHead() *Head {
	return &Head{attached: make(map[string]struct{})}
}

// AttachOnce adds markup under id unless id is already attached. It reports
// whether the markup was added.
func (h *Head) AttachOnce(id string, markup template.HTML) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.attached[id]; ok {
		return false
	}
	h.attached[id] = struct{}{}
	h.parts = append(h.parts, markup)
	return true
}

// Attached reports whether id has been attached.
func (h *Head) Attached(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.attached[id]
	return ok
}

// HTML returns the attached markup in attach order.
func (h *Head) HTML() template.HTML {
	h.mu.Lock()
	defer h.mu.Unlock()
	var buf bytes.Buffer
	for _, p := range h.parts {
		buf.WriteString(string(p))
		buf.WriteByte('\n')
	}
	// #nosec G203 -- parts are produced by this package from escaped nodes.
	return template.HTML(buf.String())
}

// PrismTheme returns a stylesheet link that loads without blocking render,
// plus a <noscript> fallback for clients without JavaScript.
func PrismTheme(href string) template.HTML {
	link := element(atom.Link)
	setAttr(link, "data-id", PrismThemeID)
	setAttr(link, "rel", "stylesheet")
	setAttr(link, "href", href)
	setAttr(link, "media", "print")
	setAttr(link, "onload", "this.media='all'; this.onload=null;")

	fallback := element(atom.Link)
	setAttr(fallback, "rel", "stylesheet")
	setAttr(fallback, "href", href)
	noscript := element(atom.Noscript)
	noscript.AppendChild(fallback)

	var buf bytes.Buffer
	_ = html.Render(&buf, link)
	_ = html.Render(&buf, noscript)
	// #nosec G203 -- rendered from escaped html.Node values.
	return template.HTML(buf.String())
}
