package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// run parses args and runs the selected command, returning its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("postbuilder"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	var out bytes.Buffer
	err = kctx.Run(&Global{Stdout: &out})
	return out.String(), err
}

type project struct {
	dir    string
	config string
	posts  string
	public string
}

func newProject(t *testing.T, extra string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:    dir,
		config: filepath.Join(dir, "postbuilder.yaml"),
		posts:  filepath.Join(dir, "posts"),
		public: filepath.Join(dir, "public"),
	}
	require.NoError(t, os.MkdirAll(p.posts, 0o750))
	cfg := "version: \"1\"\n" +
		"site:\n  title: Test Blog\n  base_url: https://blog.test\n" +
		"content:\n  dir: " + p.posts + "\n" +
		"output:\n  directory: " + p.public + "\n" +
		"logging:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(p.config, []byte(cfg), 0o600))
	return p
}

func (p project) post(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.posts, name), []byte(body), 0o600))
}

const helloPost = "---\ntitle: Hello\ndescription: First post\ndate: 2024-03-01\ntags: [go]\n---\n\n# Hello World\n\nSome text.\n"

func TestBuildCommand(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "hello.md", helloPost)
	p.post(t, "undated.md", "---\ntitle: Later\n---\n\nNot yet.\n")

	out, err := run(t, "-c", p.config, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 2 posts")
	assert.Contains(t, out, "1 built")
	assert.Contains(t, out, "1 not found")

	page, err := os.ReadFile(filepath.Join(p.public, "blog", "hello", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `id="hello-world"`)
	assert.FileExists(t, filepath.Join(p.public, "blog", "hello", "document.json"))
	assert.FileExists(t, filepath.Join(p.public, "blog", "index.html"))
	assert.FileExists(t, filepath.Join(p.public, "404.html"))
}

func TestBuildCommand_FailedPostExitsWithBuildError(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "hello.md", helloPost)
	p.post(t, "broken.md", "---\ntitle: Broken\ndate: 2024-01-01\n---\n\n```go\nfunc main() {\n")

	out, err := run(t, "-c", p.config, "build")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryBuild))
	assert.Contains(t, out, "FAILED broken")
	assert.FileExists(t, filepath.Join(p.public, "blog", "hello", "index.html"))
	assert.Equal(t, 11, derrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCommand_OutputOverride(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "hello.md", helloPost)
	alt := filepath.Join(p.dir, "alt")

	_, err := run(t, "-c", p.config, "build", "-o", alt)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(alt, "blog", "hello", "index.html"))
	assert.NoDirExists(t, p.public)
}

func TestBuildCommand_MissingConfig(t *testing.T) {
	_, err := run(t, "-c", filepath.Join(t.TempDir(), "nope.yaml"), "build")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestListCommand(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "hello.md", helloPost)
	p.post(t, "undated.mdx", "---\ntitle: Later\n---\n\nNot yet.\n")

	out, err := run(t, "-c", p.config, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SLUG")
	assert.Regexp(t, `^hello\s+2024-03-01\s+Hello$`, lines[1])
	assert.Regexp(t, `^undated\s+-\s+Later$`, lines[2])
}

func TestTransformCommand(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "hello.md", helloPost)

	out, err := run(t, "-c", p.config, "transform", filepath.Join(p.posts, "hello.md"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, out, `"hello-world"`)
	assert.Contains(t, out, `"First post"`)
}

func TestTransformCommand_ParseFailure(t *testing.T) {
	p := newProject(t, "")
	p.post(t, "broken.mdx", "---\ntitle: Broken\n---\n\n```\nopen\n")

	_, err := run(t, "-c", p.config, "transform", filepath.Join(p.posts, "broken.mdx"))
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryParse))
}

func TestPluginsCommand(t *testing.T) {
	out, err := run(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "Available plugins:")
	assert.Contains(t, out, "sectionize")
	assert.Contains(t, out, "Configured order: a11y-emoji -> breaks")
}

func TestPluginsCommand_UnknownPlugin(t *testing.T) {
	p := newProject(t, "pipeline:\n  plugins:\n    - name: slug\n    - name: toc\n")
	_, err := run(t, "-c", p.config, "plugins")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestNewCommand(t *testing.T) {
	p := newProject(t, "")

	out, err := run(t, "-c", p.config, "new", "My First Post", "--date", "2024-05-01", "-t", "go,blog")
	require.NoError(t, err)
	path := filepath.Join(p.posts, "my-first-post.md")
	assert.Contains(t, out, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "title: My First Post")
	assert.Contains(t, string(raw), "2024-05-01")

	_, err = run(t, "-c", p.config, "new", "My First Post")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postbuilder.yaml")

	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)

	_, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}
