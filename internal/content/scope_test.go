package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_OrderPreserved(t *testing.T) {
	s := NewScope(Entry{"b", 1}, Entry{"a", "x"}, Entry{"c", true})
	s.Set("a", "y")
	assert.Equal(t, []string{"b", "a", "c"}, s.Keys())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"y","c":true}`, string(b))
}

func TestScope_UnmarshalKeepsOrder(t *testing.T) {
	var s Scope
	require.NoError(t, json.Unmarshal([]byte(`{"z":"1","y":["a","b"],"x":null,"w":3,"v":1.5}`), &s))
	assert.Equal(t, []string{"z", "y", "x", "w", "v"}, s.Keys())
	y, _ := s.Get("y")
	assert.Equal(t, []string{"a", "b"}, y)
	w, _ := s.Get("w")
	assert.Equal(t, int64(3), w)
	v, _ := s.Get("v")
	assert.InDelta(t, 1.5, v, 0.0001)
}

func TestScope_CloneIsDeep(t *testing.T) {
	s := NewScope(Entry{"tags", []string{"a"}})
	c := s.Clone()
	tags, _ := s.Get("tags")
	tags.([]string)[0] = "b"
	got, _ := c.Get("tags")
	assert.Equal(t, []string{"a"}, got)
	assert.False(t, s.Equal(c))
}

func TestScope_MarshalRejectsUnencodable(t *testing.T) {
	s := NewScope(Entry{"ch", make(chan int)})
	_, err := json.Marshal(s)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("MDX")
	require.NoError(t, err)
	assert.Equal(t, KindMDX, k)
	_, err = ParseKind("rst")
	assert.Error(t, err)
	assert.Equal(t, KindMDX, KindFromPath("posts/a.mdx"))
	assert.Equal(t, KindMarkdown, KindFromPath("posts/a.md"))
}
