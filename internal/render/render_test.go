package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

func transform(t *testing.T, src string) *content.Document {
	t.Helper()
	ps, err := plugins.Builtin().Build(plugins.DefaultSpecs())
	require.NoError(t, err)
	doc, err := content.Transform(content.NewSource(content.KindMarkdown, src), content.Scope{}, ps)
	require.NoError(t, err)
	return doc
}

func TestHydrate_Basic(t *testing.T) {
	tree := mdast.New(mdast.TypeRoot,
		&mdast.Node{Type: mdast.TypeHeading, Depth: 1, Data: map[string]any{"id": "hello"}, Children: []*mdast.Node{mdast.NewText("Hello")}},
		mdast.New(mdast.TypeParagraph, mdast.NewText("World")),
	)
	out, err := HydrateTree(tree)
	require.NoError(t, err)
	assert.Equal(t, "<h1 id=\"hello\">Hello</h1>\n<p>World</p>\n", string(out))
}

func TestHydrate_EscapesText(t *testing.T) {
	tree := mdast.New(mdast.TypeRoot, mdast.New(mdast.TypeParagraph, mdast.NewText("a <b> & c")))
	out, err := HydrateTree(tree)
	require.NoError(t, err)
	assert.Equal(t, "<p>a &lt;b&gt; &amp; c</p>\n", string(out))
}

func TestHydrate_EntitiesAreNotDoubleEscaped(t *testing.T) {
	out, err := Hydrate(transform(t, "Tom &amp; Jerry"))
	require.NoError(t, err)
	assert.Equal(t, "<p>Tom &amp; Jerry</p>\n", string(out))

	out, err = Hydrate(transform(t, "a \\*b\\*"))
	require.NoError(t, err)
	assert.Equal(t, "<p>a *b*</p>\n", string(out))
}

func TestHydrate_DropsDangerousURLs(t *testing.T) {
	tree := mdast.New(mdast.TypeRoot, mdast.New(mdast.TypeParagraph,
		&mdast.Node{Type: mdast.TypeLink, URL: "javascript:alert(1)", Children: []*mdast.Node{mdast.NewText("x")}},
		&mdast.Node{Type: mdast.TypeLink, URL: "JavaScript:alert(1)", Children: []*mdast.Node{mdast.NewText("y")}},
		&mdast.Node{Type: mdast.TypeLink, URL: " java\tscript:alert(1)", Children: []*mdast.Node{mdast.NewText("z")}},
		&mdast.Node{Type: mdast.TypeImage, URL: "data:text/html;base64,PHNjcmlwdD4=", Alt: "d"},
		&mdast.Node{Type: mdast.TypeImage, URL: "data:image/png;base64,iVBORw0KGgo=", Alt: "ok"},
	))
	out, err := HydrateTree(tree)
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "javascript:")
	assert.NotContains(t, s, "script:alert")
	assert.NotContains(t, s, "text/html")
	assert.Contains(t, s, `<a href="">x</a>`)
	assert.Contains(t, s, `src="data:image/png;base64,iVBORw0KGgo="`)
}

func TestHydrate_MarkdownJavascriptLink(t *testing.T) {
	out, err := Hydrate(transform(t, "[x](javascript:alert(1)) [y](&#106;avascript:alert(2))"))
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "alert")
	assert.Contains(t, s, `href=""`)
}

func TestHydrate_FromDocument(t *testing.T) {
	doc := transform(t, "# Intro\n\nSee [Go](https://go.dev) :rocket:\nnext line\n\n```go\nx := 1\n```\n")
	out, err := Hydrate(doc)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<section aria-labelledby="intro">`)
	assert.Contains(t, s, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, s, `<a href="https://go.dev" rel="nofollow noopener noreferrer" target="_blank">Go</a>`)
	assert.Contains(t, s, `role="img"`)
	assert.Contains(t, s, `<br/>`)
	assert.Contains(t, s, `<pre class="language-go"><code class="language-go">x := 1`)
}

func TestHydrate_DecodedDocumentMatches(t *testing.T) {
	doc := transform(t, "Text[^n]\n\n[^n]: Note\n\n| a | b |\n|---|:-:|\n| 1 | 2 |\n")
	decoded, err := content.Decode(doc.Bytes())
	require.NoError(t, err)

	a, err := Hydrate(doc)
	require.NoError(t, err)
	b, err := Hydrate(decoded)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHydrate_Footnotes(t *testing.T) {
	doc := transform(t, "One[^x] two[^y].\n\n[^y]: Why.\n\n[^x]: Ex.\n")
	out, err := Hydrate(doc)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<sup><a href="#fn-x" id="fnref-x" class="footnote-ref">1</a></sup>`)
	assert.Contains(t, s, `<section class="footnotes" role="doc-endnotes">`)
	// definitions are listed in reference order
	assert.Less(t, strings.Index(s, `id="fn-x"`), strings.Index(s, `id="fn-y"`))
	assert.Contains(t, s, `class="footnote-backref"`)
}

func TestHydrate_Table(t *testing.T) {
	doc := transform(t, "| a | b |\n|:-:|---|\n| 1 | 2 |\n")
	out, err := Hydrate(doc)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<thead><tr><th style="text-align: center">a</th><th>b</th></tr></thead>`)
	assert.Contains(t, s, `<tbody><tr><td style="text-align: center">1</td><td>2</td></tr></tbody>`)
}

func TestHydrate_TaskListAndTightLists(t *testing.T) {
	doc := transform(t, "- [x] done\n- plain\n")
	out, err := Hydrate(doc)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<li class="task-list-item"><input type="checkbox" disabled="" checked=""/> done</li>`)
	assert.Contains(t, s, `<li>plain</li>`)
}

func TestHydrate_RawHTML(t *testing.T) {
	doc := transform(t, "<div class=\"note\">Block</div>\n\nInline <kbd>Ctrl</kbd> key\n")
	out, err := Hydrate(doc)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<div class="note">Block</div>`)
	assert.Contains(t, s, `Inline <kbd>Ctrl</kbd> key`)
}

func TestHydrate_DropsESM(t *testing.T) {
	tree := mdast.New(mdast.TypeRoot, &mdast.Node{Type: mdast.TypeESM, Value: "import X from 'x'"})
	out, err := HydrateTree(tree)
	require.NoError(t, err)
	assert.Empty(t, string(out))
}

func TestHead_AttachOnce(t *testing.T) {
	h := NewHead()
	assert.True(t, h.AttachOnce(PrismThemeID, PrismTheme("/prism-theme.css")))
	assert.False(t, h.AttachOnce(PrismThemeID, PrismTheme("/other.css")))
	assert.True(t, h.Attached(PrismThemeID))

	s := string(h.HTML())
	assert.Equal(t, 1, strings.Count(s, `data-id="prism-theme"`))
	assert.Contains(t, s, `media="print"`)
	assert.Contains(t, s, `<noscript><link rel="stylesheet" href="/prism-theme.css"/></noscript>`)
	assert.NotContains(t, s, "other.css")
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Site{Title: "My Blog", BaseURL: "https://blog.example/", Author: "Sam", TwitterHandle: "@blog"})
	require.NoError(t, err)
	return r
}

func TestRenderer_Page(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	err := r.Page(&buf, Article{
		Slug:          "hello",
		Title:         "Hello",
		Description:   "First post",
		ISODate:       "2024-01-01T00:00:00Z",
		FormattedDate: "January 1, 2024",
		Tags:          []string{"go", "blog"},
		ImageURL:      "/img/hero.png",
		ReadTime:      "1 min read",
		Content:       "<p>World</p>",
	})
	require.NoError(t, err)
	s := buf.String()

	assert.Contains(t, s, `<title>Hello | My Blog</title>`)
	assert.Contains(t, s, `<link rel="canonical" href="https://blog.example/blog/hello">`)
	assert.Contains(t, s, `<meta property="og:image" content="https://blog.example/img/hero.png">`)
	assert.Contains(t, s, `<meta property="article:tag" content="go">`)
	assert.Contains(t, s, `<meta name="twitter:card" content="summary_large_image">`)
	assert.Contains(t, s, `"@type":"BlogPosting"`)
	assert.Contains(t, s, `"datePublished":"2024-01-01T00:00:00Z"`)
	assert.Contains(t, s, `<time datetime="2024-01-01T00:00:00Z">January 1, 2024</time>`)
	assert.Contains(t, s, `1 min read`)
	assert.Contains(t, s, `<p>World</p>`)
	assert.Equal(t, 1, strings.Count(s, `data-id="prism-theme"`))
	assert.Contains(t, s, "twitter.com/intent/tweet?url=https%3A%2F%2Fblog.example%2Fblog%2Fhello")
}

func TestRenderer_PageEscapesMetadata(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, Article{Slug: "x", Title: `</script><b>`, Description: `a"b`}))
	s := buf.String()
	assert.NotContains(t, s, "</script><b>")
	assert.NotContains(t, s, `content="a"b"`)
}

func TestRenderer_NotFound(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.NotFound(&buf))
	assert.Contains(t, buf.String(), "<h1>404</h1>")
	assert.Contains(t, buf.String(), `<meta name="robots" content="noindex">`)
}

func TestRenderer_Index(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.Index(&buf, []Article{
		{Slug: "b", Title: "Second", FormattedDate: "May 2, 2024", ISODate: "2024-05-02T00:00:00Z"},
		{Slug: "a", Title: "First"},
	}))
	s := buf.String()
	assert.Contains(t, s, `<a href="/blog/b">Second</a>`)
	assert.Less(t, strings.Index(s, "Second"), strings.Index(s, "First"))
}
