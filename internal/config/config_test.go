package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeProfile(t, `
datastore  = "/data/music"
mountpoint = "/mnt/music"
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/music", p.Datastore)
	assert.Equal(t, "/mnt/music", p.Mountpoint)
	assert.Equal(t, "fuse", p.Backend)
	assert.Equal(t, "_", p.Prefix)
	assert.False(t, p.ReadOnly)
}

func TestLoadRejectsUnsupportedPrefix(t *testing.T) {
	path := writeProfile(t, `
datastore  = "/data/music"
mountpoint = "/mnt/music"
prefix     = "@"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresDatastoreAndMountpoint(t *testing.T) {
	path := writeProfile(t, `backend = "nfs"`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadHonorsExplicitBackendAndReadOnly(t *testing.T) {
	path := writeProfile(t, `
datastore  = "/data/music"
mountpoint = "/mnt/music"
backend    = "nfs"
read_only  = true
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nfs", p.Backend)
	assert.True(t, p.ReadOnly)
}
