package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	f, err := Split(input)
	require.NoError(t, err)
	require.False(t, f.Had)
	require.Empty(t, f.Frontmatter)
	require.Equal(t, input, f.Body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	f, err := Split([]byte("---\ntitle: Hi\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, f.Had)
	require.Equal(t, "title: Hi\n", string(f.Frontmatter))
	require.Equal(t, "# Title\n", string(f.Body))
}

func TestSplit_EmptyFrontmatter(t *testing.T) {
	f, err := Split([]byte("---\n---\nbody"))
	require.NoError(t, err)
	require.True(t, f.Had)
	require.Empty(t, f.Frontmatter)
	require.Equal(t, "body", string(f.Body))
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	f, err := Split([]byte("---\ntitle: Hi\n---"))
	require.NoError(t, err)
	require.True(t, f.Had)
	require.Equal(t, "title: Hi\n", string(f.Frontmatter))
	require.Empty(t, f.Body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	f, err := Split([]byte("---\ntitle: Hi\n# Title\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
	require.False(t, f.Had)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	f, err := Split([]byte("---\r\ntitle: Hi\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, f.Had)
	require.Equal(t, "\r\n", f.Style.Newline)
	require.Equal(t, "title: Hi\r\n", string(f.Frontmatter))
	require.Equal(t, "# Title\r\n", string(f.Body))
}

func TestJoin_RoundTrip(t *testing.T) {
	input := []byte("---\ntitle: Hi\n---\nbody\n")
	f, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, input, Join(f))

	plain := File{Body: []byte("just body")}
	require.Equal(t, "just body", string(Join(plain)))
}

func TestParse_KeepsOrder(t *testing.T) {
	fields, err := Parse([]byte("title: Hi\ndate: 2024-01-01\ntags: [a, b]\nimageUrl:\n"))
	require.NoError(t, err)
	require.Len(t, fields, 4)
	require.Equal(t, "title", fields[0].Key)
	require.Equal(t, "date", fields[1].Key)
	require.Equal(t, []any{"a", "b"}, fields[2].Value)
	require.Nil(t, fields[3].Value)
}

func TestParse_RejectsNonMapping(t *testing.T) {
	_, err := Parse([]byte("- a\n- b\n"))
	require.Error(t, err)

	_, err = Parse([]byte("title: [unclosed\n"))
	require.Error(t, err)
}

func TestParseMap(t *testing.T) {
	m, err := ParseMap([]byte("title: Hi\n"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "Hi"}, m)

	empty, err := ParseMap(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
