package nfsserver

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerListensOnEphemeralPort(t *testing.T) {
	srv, err := NewServer(memfs.New())
	require.NoError(t, err)
	defer srv.Close()

	assert.Greater(t, srv.Port(), 0)
}

func TestCloseStopsTheListener(t *testing.T) {
	srv, err := NewServer(memfs.New())
	require.NoError(t, err)
	assert.NoError(t, srv.Close())
}
