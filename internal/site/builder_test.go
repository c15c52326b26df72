package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/cache"
	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
	"git.home.luguber.info/inful/postbuilder/internal/notify"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
	"git.home.luguber.info/inful/postbuilder/internal/render"
)

const helloPost = "---\ntitle: Hello\ndescription: First post\ndate: 2024-03-01\ntags: [go]\n---\n# Hello\n\nWorld\n"

type fixture struct {
	postsDir string
	outDir   string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{postsDir: filepath.Join(root, "posts"), outDir: filepath.Join(root, "public")}
	require.NoError(t, os.MkdirAll(f.postsDir, 0o750))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(f.postsDir, name), []byte(body), 0o600))
	}
	return f
}

func defaultPipeline(t *testing.T, extra ...content.Plugin) *content.Pipeline {
	t.Helper()
	ps, err := plugins.Builtin().Build(plugins.DefaultSpecs())
	require.NoError(t, err)
	p, err := content.NewPipeline(append(ps, extra...))
	require.NoError(t, err)
	return p
}

func (f fixture) builder(t *testing.T, p *content.Pipeline, opts ...Option) *Builder {
	t.Helper()
	r, err := render.NewRenderer(render.Site{Title: "Test Blog", BaseURL: "https://blog.test"})
	require.NoError(t, err)
	return NewBuilder(posts.NewStore(f.postsDir), p, r, f.outDir, opts...)
}

func TestBuild_HelloWorld(t *testing.T) {
	f := newFixture(t, map[string]string{"hello.mdx": helloPost})
	report, err := f.builder(t, defaultPipeline(t)).Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	res, ok := report.Result("hello")
	require.True(t, ok)
	assert.Equal(t, OutcomeBuilt, res.Outcome)
	assert.Equal(t, filepath.Join(f.outDir, "blog", "hello", PageFile), res.Path)

	heading := mdast.Find(res.Document.Tree(), mdast.TypeHeading)
	require.NotNil(t, heading)
	id, _ := heading.DataString("id")
	assert.Equal(t, "hello", id)
	assert.Equal(t, "Hello", res.Document.Scope().String("title"))

	page, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(page), "March 1, 2024")
	assert.Contains(t, string(page), "1 min read")
	assert.Contains(t, string(page), `<link rel="canonical" href="https://blog.test/blog/hello"`)

	raw, err := os.ReadFile(filepath.Join(f.outDir, "blog", "hello", DocumentFile))
	require.NoError(t, err)
	assert.Equal(t, res.Document.Bytes(), raw)

	index, err := os.ReadFile(filepath.Join(f.outDir, "blog", PageFile))
	require.NoError(t, err)
	assert.Contains(t, string(index), "/blog/hello")
	assert.FileExists(t, filepath.Join(f.outDir, NotFoundFile))
}

func TestBuild_MissingDateIsNotFoundWithoutTransform(t *testing.T) {
	var calls atomic.Int32
	counter := content.NewPluginFunc("counter", func(*mdast.Node) error {
		calls.Add(1)
		return nil
	})
	f := newFixture(t, map[string]string{
		"undated.md": "---\ntitle: Draft\ndate: null\n---\nBody\n",
	})

	report, err := f.builder(t, defaultPipeline(t, counter)).Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	res, ok := report.Result("undated")
	require.True(t, ok)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	var missing *MissingRequiredField
	require.ErrorAs(t, res.Err, &missing)
	assert.Equal(t, "date", missing.Field)
	assert.Zero(t, calls.Load())

	page, err := os.ReadFile(filepath.Join(f.outDir, "blog", "undated", PageFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "404")
	assert.NoFileExists(t, filepath.Join(f.outDir, "blog", "undated", DocumentFile))
}

func TestBuild_MissingDateFailPolicy(t *testing.T) {
	f := newFixture(t, map[string]string{
		"undated.md": "---\ntitle: Draft\n---\nBody\n",
		"hello.md":   helloPost,
	})
	report, err := f.builder(t, defaultPipeline(t), WithMissingDatePolicy(config.MissingDateFail)).Build(context.Background())
	require.NoError(t, err)

	res, _ := report.Result("undated")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Error(t, report.Err())
	assert.True(t, derrors.HasCategory(report.Err(), derrors.CategoryBuild))
	assert.Equal(t, 1, report.Counts()[OutcomeBuilt])
}

func TestBuild_FailureIsolation(t *testing.T) {
	f := newFixture(t, map[string]string{
		"broken.md": "---\ntitle: Broken\ndate: 2024-01-02\n---\nText\n\n```go\nfmt.Println()\n",
		"hello.md":  helloPost,
	})
	report, err := f.builder(t, defaultPipeline(t), WithWorkers(2)).Build(context.Background())
	require.NoError(t, err)

	broken, _ := report.Result("broken")
	assert.Equal(t, OutcomeFailed, broken.Outcome)
	assert.True(t, derrors.HasCategory(broken.Err, derrors.CategoryParse))
	assert.ErrorIs(t, broken.Err, content.ErrParse)

	hello, _ := report.Result("hello")
	assert.Equal(t, OutcomeBuilt, hello.Outcome)
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, "partial", string(report.Outcome()))
}

func TestBuild_PluginPanicFailsOnlyThatPost(t *testing.T) {
	picky := content.NewPluginFunc("picky", func(tree *mdast.Node) error {
		if strings.Contains(mdast.TextContent(tree), "explode") {
			panic("boom")
		}
		return nil
	})
	f := newFixture(t, map[string]string{
		"bad.md":   "---\ntitle: Bad\ndate: 2024-01-02\n---\nexplode\n",
		"hello.md": helloPost,
	})
	report, err := f.builder(t, defaultPipeline(t, picky)).Build(context.Background())
	require.NoError(t, err)

	bad, _ := report.Result("bad")
	assert.Equal(t, OutcomeFailed, bad.Outcome)
	var pe *content.PluginError
	require.ErrorAs(t, bad.Err, &pe)
	assert.Equal(t, "picky", pe.Plugin)
	assert.Equal(t, 8, pe.Step)

	hello, _ := report.Result("hello")
	assert.Equal(t, OutcomeBuilt, hello.Outcome)
}

func TestBuild_CacheHitReturnsIdenticalBytes(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := newFixture(t, map[string]string{"hello.md": helloPost})
	b := f.builder(t, defaultPipeline(t), WithCache(store))

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	second, err := b.Build(context.Background())
	require.NoError(t, err)

	r1, _ := first.Result("hello")
	r2, _ := second.Result("hello")
	assert.Equal(t, OutcomeBuilt, r1.Outcome)
	assert.Equal(t, OutcomeCached, r2.Outcome)
	assert.Equal(t, r1.Document.Bytes(), r2.Document.Bytes())

	// A different pipeline never reuses the entry.
	other := f.builder(t, defaultPipeline(t, content.NewPluginFunc("noop", nil)), WithCache(store))
	third, err := other.Build(context.Background())
	require.NoError(t, err)
	r3, _ := third.Result("hello")
	assert.Equal(t, OutcomeBuilt, r3.Outcome)
}

func TestBuild_DocumentTimeout(t *testing.T) {
	slow := content.NewPluginFunc("slow", func(*mdast.Node) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	f := newFixture(t, map[string]string{"hello.md": helloPost})
	report, err := f.builder(t, defaultPipeline(t, slow), WithDocumentTimeout(10*time.Millisecond)).Build(context.Background())
	require.NoError(t, err)

	res, _ := report.Result("hello")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, derrors.HasCategory(res.Err, derrors.CategoryBuild))
}

func TestBuild_PublishesEvents(t *testing.T) {
	pub := &notify.Memory{}
	f := newFixture(t, map[string]string{"hello.md": helloPost, "other.md": helloPost})
	report, err := f.builder(t, defaultPipeline(t), WithPublisher(pub)).Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, pub.Documents(), 2)
	last, ok := pub.LastBuild()
	require.True(t, ok)
	assert.Equal(t, report.BuildID, last.BuildID)
	assert.Equal(t, 2, last.Counts["built"])
	for _, ev := range pub.Documents() {
		assert.Equal(t, report.BuildID, ev.BuildID)
		assert.True(t, strings.HasPrefix(ev.URL, "https://blog.test/blog/"))
	}
}

func TestBuildOne_UnknownSlug(t *testing.T) {
	f := newFixture(t, nil)
	res := f.builder(t, defaultPipeline(t)).BuildOne(context.Background(), "nope")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.True(t, derrors.HasCategory(res.Err, derrors.CategoryNotFound))
}

func TestBuild_EmptyBody(t *testing.T) {
	f := newFixture(t, map[string]string{"empty.md": "---\ntitle: Empty\ndate: 2024-01-01\n---\n"})
	report, err := f.builder(t, defaultPipeline(t)).Build(context.Background())
	require.NoError(t, err)

	res, _ := report.Result("empty")
	require.Equal(t, OutcomeBuilt, res.Outcome)
	assert.Empty(t, res.Document.Tree().Children)
	assert.Equal(t, "0 min read", res.Article.ReadTime)
}

func TestBuild_CleanRemovesStaleOutput(t *testing.T) {
	f := newFixture(t, map[string]string{"hello.md": helloPost})
	stale := filepath.Join(f.outDir, "blog", "gone", PageFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err := f.builder(t, defaultPipeline(t), WithClean(true)).Build(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestBuild_Canceled(t *testing.T) {
	f := newFixture(t, map[string]string{"hello.md": helloPost})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.builder(t, defaultPipeline(t)).Build(ctx)
	require.Error(t, err)
}
