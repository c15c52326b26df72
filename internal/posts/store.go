// Package posts reads blog posts from a content directory. Each post is one
// .mdx or .md file whose basename is the post slug.
package posts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
)

// Extensions lists recognized post file extensions in lookup priority.
var Extensions = []string{".mdx", ".md"}

// Store is a read-mostly view of a posts directory.
type Store struct {
	dir string
}

// NewStore returns a Store over dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the posts directory.
func (s *Store) Dir() string { return s.dir }

// Slugs returns every post slug, sorted. When both slug.mdx and slug.md
// exist the slug is listed once.
func (s *Store) Slugs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, derrors.NotFoundError("posts directory does not exist").
				WithContext("path", s.dir).
				Build()
		}
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to list posts").
			WithContext("path", s.dir).
			Build()
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		slug, ok := slugFromName(e.Name())
		if !ok {
			continue
		}
		seen[slug] = struct{}{}
	}
	slugs := make([]string, 0, len(seen))
	for slug := range seen {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Get reads and parses the post with the given slug.
func (s *Store) Get(ctx context.Context, slug string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !ValidSlug(slug) {
		return Record{}, derrors.ValidationError("invalid post slug").
			WithContext("slug", slug).
			Build()
	}

	path, ok := s.lookup(slug)
	if !ok {
		return Record{}, derrors.NotFoundError("post not found").
			WithContext("slug", slug).
			Build()
	}

	// #nosec G304 -- path is built from a validated slug inside the posts dir.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read post").
			WithContext("path", path).
			Build()
	}
	rec, err := Parse(raw)
	if err != nil {
		if classified, ok := derrors.AsClassified(err); ok {
			return Record{}, classified.WithContext("slug", slug).WithContext("path", path)
		}
		return Record{}, err
	}
	rec.Slug = slug
	rec.Path = path
	rec.Kind = content.KindFromPath(path)
	return rec, nil
}

// Path returns the file path a post with slug would be written to.
func (s *Store) Path(slug string, kind content.Kind) string {
	ext := ".md"
	if kind == content.KindMDX {
		ext = ".mdx"
	}
	return filepath.Join(s.dir, slug+ext)
}

// Parse splits a post file into a Record without Slug, Path and Kind.
func Parse(raw []byte) (Record, error) {
	f, err := frontmatter.Split(raw)
	if err != nil {
		return Record{}, derrors.WrapError(err, derrors.CategoryValidation, "failed to split frontmatter").Build()
	}
	fields, err := frontmatter.Parse(f.Frontmatter)
	if err != nil {
		return Record{}, derrors.WrapError(err, derrors.CategoryValidation, "invalid frontmatter").Build()
	}
	rec, err := recordFromFields(fields)
	if err != nil {
		return Record{}, derrors.WrapError(err, derrors.CategoryValidation, "invalid frontmatter field").Build()
	}
	rec.Body = string(f.Body)
	return rec, nil
}

// ValidSlug reports whether slug is a plain file basename.
func ValidSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." || strings.HasPrefix(slug, ".") {
		return false
	}
	return !strings.ContainsAny(slug, `/\`)
}

func (s *Store) lookup(slug string) (string, bool) {
	for _, ext := range Extensions {
		path := filepath.Join(s.dir, slug+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func slugFromName(name string) (string, bool) {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}
