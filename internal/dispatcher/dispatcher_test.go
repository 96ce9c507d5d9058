package dispatcher

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/danieleds/GFS/internal/core"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	engine, err := core.New(t.TempDir(), 0)
	require.NoError(t, err)
	return New(engine)
}

func TestMkdirCreateWriteReadRoundTrip(t *testing.T) {
	fs := newFS(t)

	require.Equal(t, 0, fs.Mkdir("/music", 0o755))
	require.Equal(t, 0, fs.Mkdir("/music/_jazz", 0o755))

	errc, fh := fs.Create("/music/_jazz/song.mp3", 0, 0o644)
	require.Equal(t, 0, errc)

	n := fs.Write("/music/_jazz/song.mp3", []byte("hello"), 0, fh)
	assert.Equal(t, 5, n)
	require.Equal(t, 0, fs.Release("/music/_jazz/song.mp3", fh))

	errc, fh = fs.Open("/music/_jazz/song.mp3", 0)
	require.Equal(t, 0, errc)
	buf := make([]byte, 5)
	n = fs.Read("/music/_jazz/song.mp3", buf, 0, fh)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
	require.Equal(t, 0, fs.Release("/music/_jazz/song.mp3", fh))
}

func TestGetattrReportsNotFoundAsNegativeErrno(t *testing.T) {
	fs := newFS(t)

	var stat fuse.Stat_t
	errc := fs.Getattr("/does-not-exist", &stat, 0)
	assert.Equal(t, -int(fuse.ENOENT), errc)
}

func TestReaddirListsTagsAndFilesExcludingMetadata(t *testing.T) {
	fs := newFS(t)
	require.Equal(t, 0, fs.Mkdir("/music", 0o755))
	require.Equal(t, 0, fs.Mkdir("/music/_jazz", 0o755))

	errc, fh := fs.Create("/music/_jazz/song.mp3", 0, 0o644)
	require.Equal(t, 0, errc)
	require.Equal(t, 0, fs.Release("/music/_jazz/song.mp3", fh))

	var seen []string
	fill := func(name string, stat *fuse.Stat_t, ofst int64) bool {
		seen = append(seen, name)
		return true
	}
	errc = fs.Readdir("/music/_jazz", fill, 0, 0)
	require.Equal(t, 0, errc)

	assert.Contains(t, seen, ".")
	assert.Contains(t, seen, "..")
	assert.Contains(t, seen, "song.mp3")
	assert.NotContains(t, seen, "_$$_SEMANTIC_FS_GRAPH_FILE_$$")
	assert.NotContains(t, seen, "_$$_SEMANTIC_FS_ASSOC_FILE_$$")
}

func TestLinkIsNotSupported(t *testing.T) {
	fs := newFS(t)
	errc := fs.Link("/a", "/b")
	assert.Equal(t, -int(fuse.ENOTSUP), errc)
}

func TestDescribeFlags(t *testing.T) {
	assert.Equal(t, "O_RDONLY", describeFlags(os.O_RDONLY))
	assert.Equal(t, "O_WRONLY|O_CREAT|O_TRUNC", describeFlags(os.O_WRONLY|os.O_CREATE|os.O_TRUNC))
	assert.Equal(t, "O_RDWR|O_APPEND", describeFlags(os.O_RDWR|os.O_APPEND))
}
