package cache

import (
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
)

// kindField carries the source kind into the hashed frontmatter so the same
// text read as Markdown and as MDX never shares an entry.
const kindField = "__kind"

// Fingerprint computes the content fingerprint of one transform input. The scope
// is serialized as YAML in insertion order and hashed together with the body, the
// way a post file's frontmatter and body would be.
func Fingerprint(src content.Source, scope content.Scope) (string, error) {
	fields := make([]frontmatter.Field, 0, scope.Len()+1)
	fields = append(fields, frontmatter.Field{Key: kindField, Value: string(src.Kind)})
	for _, e := range scope.Entries() {
		fields = append(fields, frontmatter.Field{Key: e.Key, Value: e.Value})
	}
	serialized, err := frontmatter.Serialize(fields, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", err
	}
	fm := strings.TrimSuffix(string(serialized), "\n")
	return mdfp.CalculateFingerprintFromParts(fm, src.Text), nil
}
