package plugins

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameSlug = "slug"

type slug struct{}

func newSlug(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameSlug); err != nil {
		return nil, err
	}
	return slug{}, nil
}

func (slug) Name() string { return NameSlug }

// Transform gives every heading a document-unique id derived from its text.
// Headings that already carry an id keep it.
func (slug) Transform(tree *mdast.Node) error {
	s := NewSlugger()
	for _, h := range mdast.FindAll(tree, mdast.TypeHeading) {
		if id, ok := h.DataString("id"); ok && id != "" {
			continue
		}
		h.SetData("id", s.Slug(mdast.TextContent(h)))
	}
	return nil
}

// Slugger produces GitHub-style heading anchors, deduplicated with numeric
// suffixes. A Slugger is scoped to one document.
type Slugger struct {
	seen map[string]int
}

func NewSlugger() *Slugger {
	return &Slugger{seen: map[string]int{}}
}

// Slug returns a unique slug for value.
func (s *Slugger) Slug(value string) string {
	base := Slugify(value)
	result := base
	for {
		if _, taken := s.seen[result]; !taken {
			break
		}
		s.seen[base]++
		result = base + "-" + strconv.Itoa(s.seen[base])
	}
	s.seen[result] = 0
	return result
}

// Slugify lowercases value, drops punctuation and symbols, and turns spaces
// into hyphens. It does not deduplicate.
func Slugify(value string) string {
	value = strings.ToLower(norm.NFKC.String(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
