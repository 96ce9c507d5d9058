package semfolder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample(t *testing.T) *Folder {
	t.Helper()
	f := NewEmpty("/music")

	require.NoError(t, f.Graph.AddNode("_jazz"))
	require.NoError(t, f.Graph.AddNode("_live"))
	require.NoError(t, f.Graph.AddNode("_studio"))
	require.NoError(t, f.Graph.AddArc("_jazz", "_live"))
	require.NoError(t, f.Graph.AddArc("_jazz", "_studio"))

	require.NoError(t, f.Files.AddFile("song.mp3", "_jazz", "_live"))
	require.NoError(t, f.Files.AddFile("other.mp3"))

	return f
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := buildSample(t)

	require.NoError(t, original.Save(dir))

	loaded, err := Load(dir, "/music")
	require.NoError(t, err)

	assert.ElementsMatch(t, original.Graph.Nodes(), loaded.Graph.Nodes())
	assert.ElementsMatch(t, original.Graph.Arcs(), loaded.Graph.Arcs())
	assert.ElementsMatch(t, original.Files.Files(), loaded.Files.Files())

	for _, name := range original.Files.Files() {
		wantTags, err := original.Files.Tags(name)
		require.NoError(t, err)
		gotTags, err := loaded.Files.Tags(name)
		require.NoError(t, err)
		assert.Equal(t, wantTags, gotTags)
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildSample(t).Save(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{GraphFileName, AssocFileName}, names)
}

func TestLoadRejectsForeignBlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/"+GraphFileName, []byte("not a real blob"), 0o600))
	require.NoError(t, os.WriteFile(dir+"/"+AssocFileName, []byte("also not real"), 0o600))

	_, err := Load(dir, "/music")
	assert.Error(t, err)
}

func TestIsReservedName(t *testing.T) {
	assert.True(t, IsReservedName(GraphFileName))
	assert.True(t, IsReservedName(AssocFileName))
	assert.False(t, IsReservedName("song.mp3"))
	assert.False(t, IsReservedName("_jazz"))
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewCache(1)
	require.NoError(t, err)

	a := NewEmpty("/a")
	b := NewEmpty("/b")

	c.Put(a)
	c.Put(b)

	_, ok := c.Get("/a")
	assert.False(t, ok, "expected /a to be evicted once /b filled the single slot")

	got, ok := c.Get("/b")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestCacheRemove(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	c.Put(NewEmpty("/a"))
	c.Remove("/a")

	_, ok := c.Get("/a")
	assert.False(t, ok)
}
