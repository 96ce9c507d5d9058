package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysicalCollapsesTagChains(t *testing.T) {
	mp := New("/dsroot")

	cases := []struct {
		virtual  string
		physical string
	}{
		{"/root/_music/_jazz/_live/song.mp3", filepath.Join("/dsroot", "root", "_music", "song.mp3")},
		{"/_a/_b/_c/x", filepath.Join("/dsroot", "_a", "x")},
		{"/_sem", filepath.Join("/dsroot", "_sem")},
		{"/_sem/_a", filepath.Join("/dsroot", "_sem", "_a")},
		{"/_sem/_a/_b", filepath.Join("/dsroot", "_sem", "_b")},
		{"/a/b/c", filepath.Join("/dsroot", "a", "b", "c")},
	}

	for _, c := range cases {
		t.Run(c.virtual, func(t *testing.T) {
			assert.Equal(t, c.physical, mp.Physical(c.virtual))
		})
	}
}
