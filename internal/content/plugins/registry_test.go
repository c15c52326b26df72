package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/content"
)

func TestBuiltin_DefaultOrderResolves(t *testing.T) {
	ps, err := Builtin().Build(DefaultSpecs())
	require.NoError(t, err)
	require.Len(t, ps, len(DefaultOrder))
	for i, p := range ps {
		assert.Equal(t, DefaultOrder[i], p.Name())
	}
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := Builtin()
	_, err := r.Build([]Spec{{Name: NameSlug}, {Name: "nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")

	_, err = r.Build([]Spec{{Name: NameSlug, Options: Options{"x": 1}}})
	assert.Error(t, err)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	d := Descriptor{Name: "x", Factory: func(Options) (content.Plugin, error) { return nil, nil }}
	require.NoError(t, r.Register(d))
	assert.Error(t, r.Register(d))
	assert.Error(t, r.Register(Descriptor{Name: "y"}))
}

func TestRegistry_Validate(t *testing.T) {
	r := Builtin()

	ok := r.Validate(DefaultOrder)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Warnings)

	res := r.Validate([]string{NameSectionize, NameSlug, NameHeadingCase, "ghost"})
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)
	assert.ElementsMatch(t, []string{
		`plugin "sectionize" should run after "slug"`,
		`plugin "heading-case" should run before "slug"`,
	}, res.Warnings)
}

func TestRegistry_Recommend(t *testing.T) {
	r := Builtin()

	same, err := r.Recommend(DefaultOrder)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrder, same)

	fixed, err := r.Recommend([]string{NameSectionize, NameSlug, NameHeadingCase})
	require.NoError(t, err)
	assert.Equal(t, []string{NameHeadingCase, NameSlug, NameSectionize}, fixed)

	_, err = r.Recommend([]string{NameSlug, NameSlug})
	assert.Error(t, err)
}

func TestDescriptors_Sorted(t *testing.T) {
	ds := Builtin().Descriptors()
	require.NotEmpty(t, ds)
	for i := 1; i < len(ds); i++ {
		assert.Less(t, ds[i-1].Name, ds[i].Name)
	}
}
