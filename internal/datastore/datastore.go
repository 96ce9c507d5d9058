// Package datastore implements the DatastoreMapper: the collapse of a
// virtual path's tag chain into a single physical location under the
// datastore root (spec §4.2).
package datastore

import (
	"path/filepath"
	"strings"

	"github.com/danieleds/GFS/internal/pathinfo"
)

// Mapper rewrites virtual paths into physical ones rooted at Root.
type Mapper struct {
	Root string
}

// New returns a Mapper rooted at root.
func New(root string) Mapper {
	return Mapper{Root: root}
}

// Physical returns the physical path of a normalized absolute virtual
// path. The algorithm scans the path's components left to right; once two
// components have been appended, every further component is appended too,
// unless the two most recently appended components are *both* semantic —
// in that case the most recently appended one is dropped first. This is
// exactly the scan in the original implementation's _datastore_path: the
// check looks only at what has already been appended, not at whether the
// incoming component itself is semantic, which is what lets a tag chain
// of arbitrary length collapse down to the entry point plus (at most) the
// trailing object or the trailing tag.
func (mp Mapper) Physical(normalizedAbsPath string) string {
	components := strings.Split(strings.TrimPrefix(normalizedAbsPath, "/"), "/")
	if normalizedAbsPath == "/" {
		components = nil
	}

	var out []string
	for i, name := range components {
		if i <= 1 {
			out = append(out, name)
			continue
		}
		if len(out) >= 2 && pathinfo.IsSemanticName(out[len(out)-2]) && pathinfo.IsSemanticName(out[len(out)-1]) {
			out = out[:len(out)-1]
		}
		out = append(out, name)
	}

	return filepath.Join(append([]string{mp.Root}, out...)...)
}
