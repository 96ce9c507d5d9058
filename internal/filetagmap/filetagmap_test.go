package filetagmap

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveRenameFile(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFile("x", "jazz"))
	assert.ErrorIs(t, m.AddFile("x"), ErrDuplicateFile)

	require.NoError(t, m.RenameFile("x", "y"))
	assert.False(t, m.HasFile("x"))
	tags, err := m.Tags("y")
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, tags)

	require.NoError(t, m.RemoveFile("y"))
	assert.ErrorIs(t, m.RemoveFile("y"), ErrMissingFile)
}

func TestAssignDiscardTags(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFile("x"))
	require.NoError(t, m.AssignTags("x", "jazz", "live"))

	has, err := m.HasTags("x", []string{"jazz", "live"})
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, m.DiscardTags("x", "live"))
	has, err = m.HasTags("x", []string{"jazz", "live"})
	require.NoError(t, err)
	assert.False(t, has)

	// Discarding an absent tag is not an error.
	require.NoError(t, m.DiscardTags("x", "never-assigned"))
}

func TestRenameTagAffectsEveryFile(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFile("a", "jazz"))
	require.NoError(t, m.AddFile("b", "jazz", "live"))

	m.RenameTag("jazz", "swing")

	tagsA, _ := m.Tags("a")
	assert.Equal(t, []string{"swing"}, tagsA)
	tagsB, _ := m.Tags("b")
	sort.Strings(tagsB)
	assert.Equal(t, []string{"live", "swing"}, tagsB)

	// No-op on an unknown tag.
	m.RenameTag("never-seen", "whatever")
}

func TestRenameTagOntoPreviouslyInternedNameMergesBits(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFile("a", "old", "other"))
	require.NoError(t, m.AddFile("b", "other"))

	// Intern "new" by assigning and discarding it, so its ID predates the
	// rename.
	require.NoError(t, m.AssignTags("b", "new"))
	require.NoError(t, m.DiscardTags("b", "new"))

	m.RenameTag("old", "new")

	tagsA, _ := m.Tags("a")
	assert.Equal(t, []string{"new", "other"}, tagsA)
	tagsB, _ := m.Tags("b")
	assert.Equal(t, []string{"other"}, tagsB)
}

func TestTaggedFilesSupersetQuery(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFile("a", "jazz"))
	require.NoError(t, m.AddFile("b", "jazz", "live"))
	require.NoError(t, m.AddFile("c"))

	all := m.TaggedFiles(nil)
	sort.Strings(all)
	assert.Equal(t, []string{"a", "b", "c"}, all)

	jazz := m.TaggedFiles([]string{"jazz"})
	sort.Strings(jazz)
	assert.Equal(t, []string{"a", "b"}, jazz)

	jazzLive := m.TaggedFiles([]string{"jazz", "live"})
	assert.Equal(t, []string{"b"}, jazzLive)

	assert.Empty(t, m.TaggedFiles([]string{"unknown-tag"}))
}
