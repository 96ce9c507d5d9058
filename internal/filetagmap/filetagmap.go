// Package filetagmap implements the per-entry-point filename→tagset map.
// Tagsets are stored as roaring bitmaps over an interned tag-ID space so
// that the "files whose tagset is a superset of T" query (used by readdir
// on a tag) is a bitmap comparison per file rather than a per-file
// set-membership scan.
package filetagmap

import (
	"errors"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

var (
	// ErrDuplicateFile is returned by AddFile when the name is already
	// present in the namespace.
	ErrDuplicateFile = errors.New("filetagmap: file name already exists")
	// ErrMissingFile is returned by any operation naming a file that
	// isn't present.
	ErrMissingFile = errors.New("filetagmap: file name does not exist")
)

// Map is a filename → set-of-tags association. The zero value is not
// usable; construct with New.
type Map struct {
	files map[string]*roaring.Bitmap

	tagID   map[string]uint32
	tagName map[uint32]string
	nextID  uint32
}

// New returns an empty Map.
func New() *Map {
	return &Map{
		files:   make(map[string]*roaring.Bitmap),
		tagID:   make(map[string]uint32),
		tagName: make(map[uint32]string),
	}
}

// HasFile reports whether filename is present in the namespace.
func (m *Map) HasFile(filename string) bool {
	_, ok := m.files[filename]
	return ok
}

// internID returns the bitmap bit for tag, allocating a fresh one if this
// is the first time the tag is mentioned. FileTagMap never validates tag
// names against a TagGraph — that's the SemanticFolder's job.
func (m *Map) internID(tag string) uint32 {
	if id, ok := m.tagID[tag]; ok {
		return id
	}
	id := m.nextID
	m.nextID++
	m.tagID[tag] = id
	m.tagName[id] = tag
	return id
}

// AddFile adds filename with the given initial tagset (possibly empty).
func (m *Map) AddFile(filename string, tags ...string) error {
	if m.HasFile(filename) {
		return ErrDuplicateFile
	}
	bm := roaring.New()
	for _, t := range tags {
		bm.Add(m.internID(t))
	}
	m.files[filename] = bm
	return nil
}

// RemoveFile deletes filename from the namespace.
func (m *Map) RemoveFile(filename string) error {
	if !m.HasFile(filename) {
		return ErrMissingFile
	}
	delete(m.files, filename)
	return nil
}

// RenameFile renames a file in place, preserving its tagset.
func (m *Map) RenameFile(oldName, newName string) error {
	if !m.HasFile(oldName) {
		return ErrMissingFile
	}
	if m.HasFile(newName) {
		return ErrDuplicateFile
	}
	m.files[newName] = m.files[oldName]
	delete(m.files, oldName)
	return nil
}

// AssignTags unions tags into filename's tagset.
func (m *Map) AssignTags(filename string, tags ...string) error {
	bm, ok := m.files[filename]
	if !ok {
		return ErrMissingFile
	}
	for _, t := range tags {
		bm.Add(m.internID(t))
	}
	return nil
}

// DiscardTags removes tags from filename's tagset. Removing an absent tag
// is not an error.
func (m *Map) DiscardTags(filename string, tags ...string) error {
	bm, ok := m.files[filename]
	if !ok {
		return ErrMissingFile
	}
	for _, t := range tags {
		if id, ok := m.tagID[t]; ok {
			bm.Remove(id)
		}
	}
	return nil
}

// RenameTag replaces tag old with new in every file's tagset. A no-op if
// old is not used by any file. When new has never been interned this only
// touches the intern table — every file's bitmap keeps its bit, so the
// common case is O(1) regardless of how many files carry the tag. When new
// was interned before (a tag of that name existed at some point), the two
// bits are merged file by file instead, so no bitmap is left referencing a
// retired ID.
func (m *Map) RenameTag(old, new string) {
	oldID, ok := m.tagID[old]
	if !ok {
		return
	}
	if newID, taken := m.tagID[new]; taken {
		for _, bm := range m.files {
			if bm.Contains(oldID) {
				bm.Remove(oldID)
				bm.Add(newID)
			}
		}
		delete(m.tagID, old)
		delete(m.tagName, oldID)
		return
	}
	delete(m.tagID, old)
	m.tagID[new] = oldID
	m.tagName[oldID] = new
}

// HasTags reports whether filename's tagset is a superset of tags.
func (m *Map) HasTags(filename string, tags []string) (bool, error) {
	bm, ok := m.files[filename]
	if !ok {
		return false, ErrMissingFile
	}
	for _, t := range tags {
		id, known := m.tagID[t]
		if !known || !bm.Contains(id) {
			return false, nil
		}
	}
	return true, nil
}

// Tags returns filename's tagset, sorted for deterministic output.
func (m *Map) Tags(filename string) ([]string, error) {
	bm, ok := m.files[filename]
	if !ok {
		return nil, ErrMissingFile
	}
	result := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		result = append(result, m.tagName[it.Next()])
	}
	sort.Strings(result)
	return result, nil
}

// Files returns every filename in the namespace, in no particular order.
func (m *Map) Files() []string {
	result := make([]string, 0, len(m.files))
	for f := range m.files {
		result = append(result, f)
	}
	return result
}

// Export returns the full filename→tagset association as a plain map,
// sorted tagsets. Used by SemanticFolder persistence.
func (m *Map) Export() map[string][]string {
	out := make(map[string][]string, len(m.files))
	for filename := range m.files {
		tags, _ := m.Tags(filename)
		out[filename] = tags
	}
	return out
}

// FromFileTags rebuilds a Map from a filename→tagset association, the
// inverse of Export. Used when deserializing a SemanticFolder.
func FromFileTags(assoc map[string][]string) (*Map, error) {
	m := New()
	for filename, tags := range assoc {
		if err := m.AddFile(filename, tags...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TaggedFiles returns every filename whose tagset is a superset of tags.
// By convention, an empty tags argument matches every file.
func (m *Map) TaggedFiles(tags []string) []string {
	if len(tags) == 0 {
		return m.Files()
	}

	target := roaring.New()
	for _, t := range tags {
		id, known := m.tagID[t]
		if !known {
			// No file can carry a tag that was never assigned to any file.
			return nil
		}
		target.Add(id)
	}
	targetCard := target.GetCardinality()

	var result []string
	for filename, bm := range m.files {
		if bm.AndCardinality(target) == targetCard {
			result = append(result, filename)
		}
	}
	return result
}
