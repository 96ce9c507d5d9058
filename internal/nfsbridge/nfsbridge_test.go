package nfsbridge

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieleds/GFS/internal/core"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	engine, err := core.New(t.TempDir(), 0)
	require.NoError(t, err)
	return New(engine)
}

func TestMkdirAllCreatesEveryComponent(t *testing.T) {
	fs := newFS(t)

	require.NoError(t, fs.MkdirAll("/music/_jazz/_live", 0o755))

	info, err := fs.Stat("/music")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = fs.Stat("/music/_jazz")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMkdirAllIsIdempotent(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.MkdirAll("/music/_jazz", 0o755))
	require.NoError(t, fs.MkdirAll("/music/_jazz", 0o755))
}

func TestCreateWriteCloseThenOpenReadRoundTrip(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.MkdirAll("/music/_jazz", 0o755))

	f, err := fs.Create("/music/_jazz/song.mp3")
	require.NoError(t, err)
	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, f.Close())

	r, err := fs.Open("/music/_jazz/song.mp3")
	require.NoError(t, err)
	buf, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, r.Close())
}

func TestReadDirExcludesMetadataAndListsTagsAndFiles(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.MkdirAll("/music/_jazz", 0o755))

	f, err := fs.Create("/music/_jazz/song.mp3")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	infos, err := fs.ReadDir("/music/_jazz")
	require.NoError(t, err)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	assert.Contains(t, names, "song.mp3")
	for _, name := range names {
		assert.NotContains(t, name, "SEMANTIC_FS")
	}
}

func TestRemoveDispatchesToRmdirOrUnlinkByKind(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.MkdirAll("/music/_jazz", 0o755))

	f, err := fs.Create("/music/_jazz/song.mp3")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fs.Remove("/music/_jazz/song.mp3"))
	_, err = fs.Stat("/music/_jazz/song.mp3")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, fs.Remove("/music/_jazz"))
	_, err = fs.Stat("/music/_jazz")
	assert.True(t, os.IsNotExist(err))
}

func TestRenameMovesTagAndPreservesFiles(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.MkdirAll("/_music/_jazz", 0o755))
	f, err := fs.Create("/_music/_jazz/song.mp3")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fs.Rename("/_music/_jazz", "/_music/_bebop"))

	_, err = fs.Stat("/_music/_jazz/song.mp3")
	assert.Error(t, err)
	_, err = fs.Stat("/_music/_bebop/song.mp3")
	assert.NoError(t, err)
}

func TestCapabilitiesReportReadWriteSeekTruncate(t *testing.T) {
	fs := newFS(t)
	caps := fs.Capabilities()
	assert.NotZero(t, caps)
}
