package posts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

func writePost(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestStore_Slugs(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "b-post.mdx", "x")
	writePost(t, dir, "a-post.md", "x")
	writePost(t, dir, "a-post.mdx", "x")
	writePost(t, dir, "notes.txt", "x")
	writePost(t, dir, ".hidden.mdx", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.mdx"), 0o750))

	slugs, err := NewStore(dir).Slugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a-post", "b-post"}, slugs)
}

func TestStore_SlugsMissingDir(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope")).Slugs(context.Background())
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}

func TestStore_Get(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "hello.mdx", "---\ntitle: Hi\ndescription: First post\ndate: 2024-01-01\ntags: [go, blog]\nimageUrl: /img/a.png\n---\n# Hello\n\nWorld")

	rec, err := NewStore(dir).Get(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", rec.Slug)
	assert.Equal(t, content.KindMDX, rec.Kind)
	assert.Equal(t, "Hi", rec.Title)
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2024-01-01", *rec.Date)
	assert.Equal(t, []string{"go", "blog"}, rec.Tags)
	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, "/img/a.png", *rec.ImageURL)
	assert.Equal(t, "# Hello\n\nWorld", rec.Body)
	assert.True(t, rec.HasDate())
}

func TestStore_GetPrefersMDX(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "x.md", "---\ntitle: md\n---\n")
	writePost(t, dir, "x.mdx", "---\ntitle: mdx\n---\n")
	rec, err := NewStore(dir).Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "mdx", rec.Title)
}

func TestStore_GetNotFound(t *testing.T) {
	_, err := NewStore(t.TempDir()).Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}

func TestStore_GetRejectsTraversal(t *testing.T) {
	for _, slug := range []string{"", "..", "../etc/passwd", `a\b`, ".env"} {
		_, err := NewStore(t.TempDir()).Get(context.Background(), slug)
		require.Error(t, err, slug)
		assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation), slug)
	}
}

func TestStore_GetBadFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "bad.md", "---\ntitle: [oops\n---\nbody")
	writePost(t, dir, "open.md", "---\ntitle: x\nbody")
	writePost(t, dir, "tags.md", "---\ntags: {a: 1}\n---\nbody")

	s := NewStore(dir)
	for _, slug := range []string{"bad", "open", "tags"} {
		_, err := s.Get(context.Background(), slug)
		require.Error(t, err, slug)
		assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation), slug)
	}
}

func TestStore_GetCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore(t.TempDir()).Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecord_Scope(t *testing.T) {
	rec, err := Parse([]byte("---\ntitle: Hi\ndate: 2024-01-01\ntags: []\nimageUrl: null\n---\n"))
	require.NoError(t, err)

	scope := rec.Scope()
	assert.Equal(t, []string{"title", "description", "date", "tags", "imageUrl"}, scope.Keys())
	assert.Equal(t, "Hi", scope.String("title"))
	date, _ := scope.Get("date")
	assert.Equal(t, "2024-01-01", date)
	tags, _ := scope.Get("tags")
	assert.Equal(t, []string{}, tags)
	img, ok := scope.Get("imageUrl")
	assert.True(t, ok)
	assert.Nil(t, img)
}

func TestRecord_MissingDate(t *testing.T) {
	rec, err := Parse([]byte("---\ntitle: Hi\ndate:\n---\nbody"))
	require.NoError(t, err)
	assert.Nil(t, rec.Date)
	assert.False(t, rec.HasDate())

	blank, err := Parse([]byte("---\ndate: \"  \"\n---\n"))
	require.NoError(t, err)
	assert.False(t, blank.HasDate())
}

func TestRecord_ScalarCoercion(t *testing.T) {
	rec, err := Parse([]byte("---\ntitle: 2024\ntags: single\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, "2024", rec.Title)
	assert.Equal(t, []string{"single"}, rec.Tags)
}

func TestStore_Create(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "posts")
	s := NewStore(dir)
	path, err := s.Create(context.Background(), Draft{Slug: "new-post", Kind: content.KindMDX, Title: "New Post", Date: "2024-05-01", Tags: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new-post.mdx"), path)

	rec, err := s.Get(context.Background(), "new-post")
	require.NoError(t, err)
	assert.Equal(t, "New Post", rec.Title)
	assert.Equal(t, []string{"go"}, rec.Tags)
	assert.Nil(t, rec.ImageURL)
	assert.Contains(t, rec.Body, "# New Post")

	_, err = s.Create(context.Background(), Draft{Slug: "new-post", Title: "again"})
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
}
