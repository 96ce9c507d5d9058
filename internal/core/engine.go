// Package core implements every semantic filesystem operation as a single,
// transport-agnostic engine. internal/dispatcher (cgofuse) and
// internal/nfsbridge (billy.Filesystem) are both thin adapters over this
// package; neither reimplements the datastore mapping, the semantic folder
// bookkeeping, or the ghost-file write buffering — that logic lives here
// exactly once.
package core

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/danieleds/GFS/internal/datastore"
	"github.com/danieleds/GFS/internal/ghost"
	"github.com/danieleds/GFS/internal/pathinfo"
	"github.com/danieleds/GFS/internal/semfolder"
)

// Handle identifies an open file across Read/Write/Flush/Release calls. It
// is opaque to callers; internally it's just an index into openFiles.
type Handle uint64

// Engine holds every piece of state a mount needs: where objects really
// live on disk, which SemanticFolders are currently loaded, which tagged
// objects have an in-progress divergent write, and which descriptors are
// currently open. A single mutex serializes every operation — the
// filesystem one entry point's SemanticFolder describes is small enough,
// and mutated rarely enough relative to reads, that per-folder locking
// would add complexity this project's scale doesn't need yet.
type Engine struct {
	mu sync.Mutex

	mapper  datastore.Mapper
	folders *semfolder.Cache
	ghosts  *ghost.Table

	openFiles map[Handle]*openFile
	nextFH    Handle
}

type openFile struct {
	path     string // normalized virtual path
	file     *os.File
	isGhost  bool
	ghostKey ghost.Key
}

// New returns an Engine storing real objects under root. folderCacheSize
// bounds how many SemanticFolders stay resident at once (0 or less selects
// a bound of 1<<20 folders, effectively unlimited — used by tests).
func New(root string, folderCacheSize int) (*Engine, error) {
	if folderCacheSize <= 0 {
		folderCacheSize = 1 << 20
	}
	cache, err := semfolder.NewCache(folderCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		mapper:    datastore.New(root),
		folders:   cache,
		ghosts:    ghost.NewTable(),
		openFiles: make(map[Handle]*openFile),
	}, nil
}

// normalize cleans a virtual path to the canonical absolute form every
// other helper assumes: a leading slash, no "..", no repeated separators,
// no trailing separator (except for the root itself).
func normalize(path string) string {
	if path == "" {
		return "/"
	}
	clean := filepath.Clean("/" + path)
	return clean
}

func (e *Engine) physical(path string) string {
	return e.mapper.Physical(path)
}

// isReservedName reports whether base is one of the two SemanticFolder
// metadata filenames, wherever it appears in a path.
func isReservedName(base string) bool {
	return semfolder.IsReservedName(base)
}

// classify normalizes and classifies path in one step.
func classify(path string) (string, pathinfo.Info, error) {
	norm := normalize(path)
	info, err := pathinfo.New(norm)
	if err != nil {
		return norm, pathinfo.Info{}, errnoOf("classify", path, syscall.EINVAL)
	}
	return norm, info, nil
}

// getFolder returns the SemanticFolder bound to entrypoint, loading it from
// disk (and caching it) if it isn't already resident. The folder's two
// metadata files must already exist — callers create them via Mkdir on the
// entry point itself.
func (e *Engine) getFolder(entrypoint string) (*semfolder.Folder, error) {
	if f, ok := e.folders.Get(entrypoint); ok {
		return f, nil
	}
	dir := e.physical(entrypoint)
	f, err := semfolder.Load(dir, entrypoint)
	if err != nil {
		return nil, err
	}
	e.folders.Put(f)
	return f, nil
}

// saveFolder persists f to disk and keeps the in-memory cache in sync.
func (e *Engine) saveFolder(f *semfolder.Folder) error {
	dir := e.physical(f.Entrypoint())
	if err := f.Save(dir); err != nil {
		return err
	}
	e.folders.Put(f)
	return nil
}

func (e *Engine) dropFolder(entrypoint string) {
	e.folders.Remove(entrypoint)
}

// exists reports whether the normalized virtual path path resolves to a
// real object, validating every semantic segment of the path along the way
// (not just its final classification) — a path through a tag that was
// never added to the graph, or naming a file the associated entry point
// never tagged, does not exist even if something happens to sit at its
// collapsed physical location.
func (e *Engine) exists(path string) bool {
	for _, sub := range pathinfo.SemanticSubpaths(path) {
		folder, err := e.getFolder(sub.Entrypoint)
		if err != nil {
			return false
		}
		if sub.Object != "" {
			if !folder.Files.HasFile(sub.Object) {
				return false
			}
		}
		if !folder.Graph.HasPath(sub.Tags) {
			return false
		}
		if sub.Object != "" {
			ok, err := folder.Files.HasTags(sub.Object, sub.Tags)
			if err != nil || !ok {
				return false
			}
		}
	}

	_, err := os.Lstat(e.physical(path))
	return err == nil
}

func basename(path string) string {
	return filepath.Base(path)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func equalStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
