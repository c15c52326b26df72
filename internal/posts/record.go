package posts

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
)

// Scope keys, in the order they are embedded into documents.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDate        = "date"
	FieldTags        = "tags"
	FieldImageURL    = "imageUrl"
)

// Record is one post as stored in the content repository.
//
// Date and ImageURL are nil when the frontmatter omits them or sets them to
// null; an empty string is kept as-is.
type Record struct {
	Slug        string
	Path        string
	Kind        content.Kind
	Title       string
	Description string
	Date        *string
	Tags        []string
	ImageURL    *string
	Body        string
}

// Source returns the post body as transformer input.
func (r Record) Source() content.Source {
	return content.NewSource(r.Kind, r.Body)
}

// Scope returns the metadata embedded alongside the transformed body.
func (r Record) Scope() content.Scope {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return content.NewScope(
		content.Entry{Key: FieldTitle, Value: r.Title},
		content.Entry{Key: FieldDescription, Value: r.Description},
		content.Entry{Key: FieldDate, Value: optional(r.Date)},
		content.Entry{Key: FieldTags, Value: tags},
		content.Entry{Key: FieldImageURL, Value: optional(r.ImageURL)},
	)
}

// HasDate reports whether a non-blank date is set.
func (r Record) HasDate() bool {
	return r.Date != nil && strings.TrimSpace(*r.Date) != ""
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func recordFromFields(fields []frontmatter.Field) (Record, error) {
	var r Record
	for _, f := range fields {
		var err error
		switch f.Key {
		case FieldTitle:
			r.Title, err = scalarString(f)
		case FieldDescription:
			r.Description, err = scalarString(f)
		case FieldDate:
			r.Date, err = optionalString(f)
		case FieldImageURL:
			r.ImageURL, err = optionalString(f)
		case FieldTags:
			r.Tags, err = stringList(f)
		}
		if err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

func scalarString(f frontmatter.Field) (string, error) {
	s, err := optionalString(f)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

func optionalString(f frontmatter.Field) (*string, error) {
	switch v := f.Value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case time.Time:
		s := v.UTC().Format(time.RFC3339)
		return &s, nil
	case int, int64, float64, bool:
		s := fmt.Sprint(v)
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q: expected a scalar, got %T", f.Key, f.Value)
	}
}

func stringList(f frontmatter.Field) ([]string, error) {
	switch v := f.Value.(type) {
	case nil:
		return []string{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: expected a list, got %T", f.Key, f.Value)
	}
}
