package posts

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
)

// Draft describes a post to scaffold.
type Draft struct {
	Slug        string
	Kind        content.Kind
	Title       string
	Description string
	Date        string
	Tags        []string
}

// Create writes a new post file with frontmatter in canonical field order.
// It refuses to overwrite an existing post.
func (s *Store) Create(ctx context.Context, d Draft) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ValidSlug(d.Slug) {
		return "", derrors.ValidationError("invalid post slug").WithContext("slug", d.Slug).Build()
	}
	if _, exists := s.lookup(d.Slug); exists {
		return "", derrors.ValidationError("post already exists").WithContext("slug", d.Slug).Build()
	}

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	fm, err := frontmatter.Serialize([]frontmatter.Field{
		{Key: FieldTitle, Value: d.Title},
		{Key: FieldDescription, Value: d.Description},
		{Key: FieldDate, Value: d.Date},
		{Key: FieldTags, Value: tags},
		{Key: FieldImageURL, Value: nil},
	}, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryInternal, "failed to encode frontmatter").Build()
	}

	body := []byte("\n# " + d.Title + "\n")
	out := frontmatter.Join(frontmatter.File{Frontmatter: fm, Body: body, Had: true, Style: frontmatter.Style{Newline: "\n"}})

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create posts directory").
			WithContext("path", s.dir).
			Build()
	}
	path := s.Path(d.Slug, d.Kind)
	// #nosec G304 -- path is built from a validated slug inside the posts dir.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", derrors.ValidationError("post already exists").WithContext("slug", d.Slug).Build()
		}
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create post").
			WithContext("path", path).
			Build()
	}
	if _, err := f.Write(out); err != nil {
		_ = f.Close()
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write post").
			WithContext("path", path).
			Build()
	}
	if err := f.Close(); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write post").
			WithContext("path", path).
			Build()
	}
	return path, nil
}
