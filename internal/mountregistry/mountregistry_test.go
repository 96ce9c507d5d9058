package mountregistry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	entry := &Entry{
		PID:        os.Getpid(),
		Datastore:  "/data/music",
		MountPoint: "/mnt/music",
		Backend:    "fuse",
		ReadOnly:   false,
		Timestamp:  time.Now().Truncate(time.Second),
	}
	require.NoError(t, Save(dir, entry))

	loaded, err := Load(dir, "/mnt/music")
	require.NoError(t, err)
	assert.Equal(t, entry.PID, loaded.PID)
	assert.Equal(t, entry.Datastore, loaded.Datastore)
	assert.Equal(t, entry.Backend, loaded.Backend)
}

func TestSidecarsForDistinctMountPointsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Entry{PID: 1, MountPoint: "/mnt/a/music"}))
	require.NoError(t, Save(dir, &Entry{PID: 2, MountPoint: "/mnt/b/music"}))

	mounts, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, mounts, 2)
}

func TestListSkipsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Entry{PID: os.Getpid(), MountPoint: "/mnt/a"}))
	require.NoError(t, Save(dir, &Entry{PID: os.Getpid(), MountPoint: "/mnt/b"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-mount.txt"), []byte("x"), 0o644))

	mounts, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, mounts, 2)
}

func TestFindMatchesFullPathThenBasename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Entry{PID: 1, MountPoint: "/mnt/music"}))
	require.NoError(t, Save(dir, &Entry{PID: 2, MountPoint: "/srv/photos"}))

	byPath, err := Find(dir, "/mnt/music")
	require.NoError(t, err)
	require.NotNil(t, byPath)
	assert.Equal(t, 1, byPath.PID)

	byName, err := Find(dir, "photos")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, 2, byName.PID)

	missing, err := Find(dir, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Entry{PID: os.Getpid(), MountPoint: "/mnt/music"}))

	require.NoError(t, Remove(dir, "/mnt/music"))
	require.NoError(t, Remove(dir, "/mnt/music"))

	_, err := Load(dir, "/mnt/music")
	assert.Error(t, err)
}

func TestIsRunningReportsCurrentProcessAsAlive(t *testing.T) {
	assert.True(t, IsRunning(os.Getpid()))
}
