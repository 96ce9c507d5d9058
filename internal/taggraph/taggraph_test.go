package taggraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveNode(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("jazz"))
	assert.ErrorIs(t, g.AddNode("jazz"), ErrDuplicateNode)
	assert.True(t, g.HasNode("jazz"))

	require.NoError(t, g.RemoveNode("jazz"))
	assert.False(t, g.HasNode("jazz"))
	assert.ErrorIs(t, g.RemoveNode("jazz"), ErrMissingNode)
}

func TestArcsAndHasPath(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("a"))
	require.NoError(t, g.AddNode("b"))
	require.NoError(t, g.AddNode("c"))
	require.NoError(t, g.AddArc("a", "b"))
	require.NoError(t, g.AddArc("b", "c"))

	assert.True(t, g.HasArc("a", "b"))
	assert.False(t, g.HasArc("b", "a"))
	assert.True(t, g.HasPath([]string{"a", "b", "c"}))
	assert.False(t, g.HasPath([]string{"a", "c"}))
	assert.True(t, g.HasPath(nil))

	out, err := g.OutgoingArcs("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, out)
}

func TestRemoveNodeDropsIncidentArcs(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("a"))
	require.NoError(t, g.AddNode("b"))
	require.NoError(t, g.AddArc("a", "b"))
	require.NoError(t, g.RemoveNode("b"))

	out, err := g.OutgoingArcs("a")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenameNodePreservesArcs(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("jazz"))
	require.NoError(t, g.AddNode("live"))
	require.NoError(t, g.AddArc("jazz", "live"))

	require.NoError(t, g.RenameNode("jazz", "swing"))
	assert.False(t, g.HasNode("jazz"))
	assert.True(t, g.HasArc("swing", "live"))

	assert.ErrorIs(t, g.RenameNode("missing", "x"), ErrMissingNode)
	require.NoError(t, g.AddNode("dup"))
	assert.ErrorIs(t, g.RenameNode("swing", "dup"), ErrDuplicateNode)
}
