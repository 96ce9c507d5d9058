package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	e, err := New(root, 0)
	require.NoError(t, err)
	return e
}

func writeWholeFile(t *testing.T, e *Engine, path string, data []byte) {
	t.Helper()
	fh, err := e.Create(path, 0o644)
	require.NoError(t, err)
	_, err = e.Write(path, fh, data, 0)
	require.NoError(t, err)
	require.NoError(t, e.Release(path, fh))
}

func readWholeFile(t *testing.T, e *Engine, path string, size int) []byte {
	t.Helper()
	fh, err := e.Open(path, os.O_RDONLY)
	require.NoError(t, err)
	data, err := e.Read(path, fh, size, 0)
	require.NoError(t, err)
	require.NoError(t, e.Release(path, fh))
	return data
}

func TestEntryPointLifecycle(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Mkdir("/_music", 0o755))
	attr, err := e.Getattr("/_music")
	require.NoError(t, err)
	assert.NotZero(t, attr.Mode)

	// Logically empty: only the two metadata files are left inside, and
	// rmdir must clear them out along with the directory itself.
	require.NoError(t, e.Rmdir("/_music"))
	_, err = e.Getattr("/_music")
	assert.Error(t, err)
}

func TestTagCreationAndTaggedObjectRoundTrip(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz/_live", 0o755))

	writeWholeFile(t, e, "/_music/_jazz/_live/song.mp3", []byte("hello"))

	assert.True(t, e.exists(normalize("/_music/_jazz/_live/song.mp3")))

	entries, err := e.Readdir("/_music/_jazz")
	require.NoError(t, err)
	assert.Contains(t, entries, "_live")
	assert.Contains(t, entries, "song.mp3")

	data := readWholeFile(t, e, "/_music/_jazz/_live/song.mp3", 5)
	assert.Equal(t, "hello", string(data))

	// Same file, reached directly under the entry point.
	data2 := readWholeFile(t, e, "/_music/song.mp3", 5)
	assert.Equal(t, "hello", string(data2))

	// A tag chain the graph has no arc for does not resolve.
	assert.False(t, e.exists(normalize("/_music/_live/_jazz/song.mp3")))
}

func TestUnlinkDropsLastTagOnly(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))
	writeWholeFile(t, e, "/_music/_jazz/song.mp3", []byte("x"))

	require.NoError(t, e.Unlink("/_music/_jazz/song.mp3"))

	assert.False(t, e.exists(normalize("/_music/_jazz/song.mp3")))
	assert.True(t, e.exists(normalize("/_music/song.mp3")))

	// Directly under the entry point there is no tag left to drop: unlink
	// removes the object for real.
	require.NoError(t, e.Unlink("/_music/song.mp3"))
	assert.False(t, e.exists(normalize("/_music/song.mp3")))
}

func TestRenameTagRenamesNodeEverywhere(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))
	writeWholeFile(t, e, "/_music/_jazz/song.mp3", []byte("x"))

	require.NoError(t, e.Rename("/_music/_jazz", "/_music/_bebop"))

	assert.False(t, e.exists(normalize("/_music/_jazz/song.mp3")))
	assert.True(t, e.exists(normalize("/_music/_bebop/song.mp3")))
}

func TestRenameEntrypointMovesWholeSemanticSpace(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))
	writeWholeFile(t, e, "/_music/_jazz/song.mp3", []byte("x"))

	require.NoError(t, e.Rename("/_music", "/_audio"))

	assert.True(t, e.exists(normalize("/_audio/_jazz/song.mp3")))
	assert.False(t, e.exists(normalize("/_music/_jazz/song.mp3")))
}

func TestRenameToSelfIsANoop(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	writeWholeFile(t, e, "/_music/song.mp3", []byte("x"))

	require.NoError(t, e.Rename("/_music/song.mp3", "/_music/song.mp3"))
	assert.True(t, e.exists(normalize("/_music/song.mp3")))
}

func TestRenameTaggedObjectTagsetChange(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))
	require.NoError(t, e.Mkdir("/_music/_live", 0o755))
	writeWholeFile(t, e, "/_music/_jazz/song.mp3", []byte("x"))

	// mv /_music/_jazz/song.mp3 /_music/_live/song.mp3: same object, the
	// last source tag is dropped and the destination tags assigned.
	require.NoError(t, e.Rename("/_music/_jazz/song.mp3", "/_music/_live/song.mp3"))

	assert.False(t, e.exists(normalize("/_music/_jazz/song.mp3")))
	assert.True(t, e.exists(normalize("/_music/_live/song.mp3")))
	assert.True(t, e.exists(normalize("/_music/song.mp3")))
}

func TestGhostDivergingWriteIsImmediateButGrowGapWaitsForRelease(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/music", 0o755))
	require.NoError(t, e.Mkdir("/music/_jazz", 0o755))
	writeWholeFile(t, e, "/music/_jazz/song.mp3", []byte("aaaaaaaaaa"))

	fh, err := e.Open("/music/_jazz/song.mp3", os.O_RDWR)
	require.NoError(t, err)

	// A write whose bytes differ from what's on disk takes effect right
	// away: the ghost file defers only the zero-fill of a growing
	// truncate, not ordinary divergent writes.
	_, err = e.Write("/music/_jazz/song.mp3", fh, []byte("bbbb"), 0)
	require.NoError(t, err)
	onDisk, err := os.ReadFile(e.physical(normalize("/music/_jazz/song.mp3")))
	require.NoError(t, err)
	assert.Equal(t, "bbbbaaaaaa", string(onDisk))

	require.NoError(t, e.Truncate("/music/_jazz/song.mp3", 14))
	onDiskAfterTruncate, err := os.ReadFile(e.physical(normalize("/music/_jazz/song.mp3")))
	require.NoError(t, err)
	assert.Equal(t, 10, len(onDiskAfterTruncate), "growing truncate must not zero-fill disk before release")

	require.NoError(t, e.Release("/music/_jazz/song.mp3", fh))
	onDiskAfterRelease, err := os.ReadFile(e.physical(normalize("/music/_jazz/song.mp3")))
	require.NoError(t, err)
	assert.Equal(t, "bbbbaaaaaa\x00\x00\x00\x00", string(onDiskAfterRelease))
}

func TestMkdirTagRejectsRepeatedTagInPath(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))

	err := e.Mkdir("/_music/_jazz/_jazz", 0o755)
	assert.Error(t, err)
}

func TestSymlinkRefusesSemanticEndpoints(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/plain", 0o755))
	require.NoError(t, e.Mkdir("/_music", 0o755))

	assert.Error(t, e.Symlink("/plain/target", "/_music/link"))
	assert.Error(t, e.Symlink("/_music/song.mp3", "/plain/link"))
	assert.NoError(t, e.Symlink("/plain/target", "/plain/link"))
	assert.NoError(t, e.Symlink("relative-target", "/plain/link2"))
}

func TestReservedNamesAreRejectedEverywhere(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))

	const reserved = "/_music/_$$_SEMANTIC_FS_GRAPH_FILE_$$"
	_, err := e.Getattr(reserved)
	assert.Error(t, err)
	_, err = e.Open(reserved, os.O_RDONLY)
	assert.Error(t, err)
	assert.Error(t, e.Unlink(reserved))
	_, err = e.Create(reserved, 0o644)
	assert.Error(t, err)

	entries, err := e.Readdir("/_music")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRmdirEntrypointFailsWhenNotEmpty(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/_music", 0o755))
	require.NoError(t, e.Mkdir("/_music/_jazz", 0o755))

	assert.Error(t, e.Rmdir("/_music"))
	require.NoError(t, e.Rmdir("/_music/_jazz"))
	require.NoError(t, e.Rmdir("/_music"))
}
