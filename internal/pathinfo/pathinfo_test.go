package pathinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsRelativePaths(t *testing.T) {
	_, err := New("a/b")
	assert.ErrorIs(t, err, ErrNotAbsolute)
}

func TestClassificationExclusivity(t *testing.T) {
	cases := []struct {
		path       string
		kind       Kind
		entrypoint string
		tags       []string
		object     string
	}{
		{"/a/b/c", KindStandardObject, "", nil, ""},
		{"/_a", KindEntryPoint, "/_a", nil, ""},
		{"/a/_b", KindEntryPoint, "/a/_b", nil, ""},
		{"/a/_b/_c/d/_e", KindEntryPoint, "/a/_b/_c/d/_e", nil, ""},
		{"/a/_b/_c", KindTag, "/a/_b", []string{"_c"}, ""},
		{"/_a/_b/_c", KindTag, "/_a", []string{"_b", "_c"}, ""},
		{"/a/_b/x", KindTaggedObject, "/a/_b", nil, "x"},
		{"/a/_b/_c/x", KindTaggedObject, "/a/_b", []string{"_c"}, "x"},
	}

	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			info, err := New(c.path)
			require.NoError(t, err)
			assert.Equal(t, c.kind, info.Kind())
			assert.Equal(t, c.entrypoint, info.Entrypoint())
			assert.Equal(t, c.tags, info.Tags())
			assert.Equal(t, c.object, info.Object())
		})
	}
}

func TestSemanticSubpaths(t *testing.T) {
	subpaths := SemanticSubpaths("/a/_b/_c/d/e/_f/g/_h")
	require.Len(t, subpaths, 3)
	assert.Equal(t, "/a/_b", subpaths[0].Entrypoint)
	assert.Equal(t, []string{"_c"}, subpaths[0].Tags)
	assert.Equal(t, "d", subpaths[0].Object)

	assert.Equal(t, "/a/_b/_c/d/e/_f", subpaths[1].Entrypoint)
	assert.Equal(t, "g", subpaths[1].Object)

	assert.Equal(t, "/a/_b/_c/d/e/_f/g/_h", subpaths[2].Entrypoint)
	assert.Equal(t, "", subpaths[2].Object)
}
