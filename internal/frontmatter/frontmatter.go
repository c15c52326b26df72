// Package frontmatter splits YAML frontmatter from post files and writes it
// back when scaffolding new posts.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Style captures the newline shape of a file so it can be written back the
// same way.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// File is a post file split into its parts.
type File struct {
	Frontmatter []byte
	Body        []byte
	Had         bool
	Style       Style
}

// Split separates `---` delimited YAML frontmatter from the body. A file that
// does not start with a delimiter has no frontmatter and the whole input as
// body.
func Split(content []byte) (File, error) {
	style := detectStyle(content)
	nl := style.Newline
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return File{Body: content, Style: style}, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return File{Frontmatter: []byte{}, Body: content[start+len(open):], Had: true, Style: style}, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the very last line has no trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) && len(content) > start+len(nl)+3 {
			end := len(content) - 3
			return File{Frontmatter: content[start:end], Body: []byte{}, Had: true, Style: style}, nil
		}
		return File{Style: style}, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return File{Frontmatter: content[start:end], Body: content[start+idx+len(closeSeq):], Had: true, Style: style}, nil
}

// Join reassembles a file. Without frontmatter the body is returned as-is.
func Join(f File) []byte {
	if !f.Had {
		return f.Body
	}
	nl := f.Style.Newline
	if nl == "" {
		nl = "\n"
	}
	delim := []byte("---" + nl)

	out := make([]byte, 0, 2*len(delim)+len(f.Frontmatter)+len(f.Body))
	out = append(out, delim...)
	out = append(out, f.Frontmatter...)
	out = append(out, delim...)
	out = append(out, f.Body...)
	return out
}

// Field is one top-level frontmatter key and its decoded value.
type Field struct {
	Key   string
	Value any
}

// Parse decodes raw frontmatter into its top-level fields in file order.
func Parse(frontmatter []byte) ([]Field, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(frontmatter, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("frontmatter must be a mapping")
	}
	fields := make([]Field, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var value any
		if err := root.Content[i+1].Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: root.Content[i].Value, Value: value})
	}
	return fields, nil
}

// ParseMap decodes raw frontmatter into a map.
func ParseMap(frontmatter []byte) (map[string]any, error) {
	fields, err := Parse(frontmatter)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m, nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}
	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
