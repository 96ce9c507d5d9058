// Package semfolder implements the SemanticFolder: the tag graph and the
// file→tagset association bound to one entry point, persisted alongside
// the objects it describes as two reserved metadata files.
package semfolder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/danieleds/GFS/internal/filetagmap"
	"github.com/danieleds/GFS/internal/pathinfo"
	"github.com/danieleds/GFS/internal/taggraph"
)

// GraphFileName and AssocFileName are the reserved filenames a
// SemanticFolder is persisted under, inside the physical directory backing
// an entry point. Both carry the semantic prefix so they are themselves
// classified as tags by pathinfo and therefore never surface as ordinary
// directory entries once the dispatcher filters reserved names out of
// readdir results.
const (
	GraphFileName = pathinfo.SemanticPrefix + "$$_SEMANTIC_FS_GRAPH_FILE_$$"
	AssocFileName = pathinfo.SemanticPrefix + "$$_SEMANTIC_FS_ASSOC_FILE_$$"
)

// IsReservedName reports whether name is one of the two metadata filenames
// a SemanticFolder occupies. The dispatcher and core engine consult this to
// keep the metadata invisible to readdir and inaccessible to ordinary
// object operations.
func IsReservedName(name string) bool {
	return name == GraphFileName || name == AssocFileName
}

// Folder is the tag graph and file-tag association for one entry point.
type Folder struct {
	entrypoint string
	Graph      *taggraph.Graph
	Files      *filetagmap.Map
}

// NewEmpty returns a Folder with no tags and no files, bound to entrypoint.
func NewEmpty(entrypoint string) *Folder {
	return &Folder{
		entrypoint: entrypoint,
		Graph:      taggraph.New(),
		Files:      filetagmap.New(),
	}
}

// Entrypoint returns the virtual path of the entry point this Folder is
// bound to.
func (f *Folder) Entrypoint() string { return f.entrypoint }

// Save atomically writes both metadata files into dir, the physical
// directory backing the entry point. Each file is written to a
// uuid-suffixed temp name in the same directory and then renamed into
// place, so a reader never observes a partially written blob and a crash
// mid-write leaves the previous metadata intact — the same pattern the
// teacher uses for its own writeback splicing.
func (f *Folder) Save(dir string) error {
	if err := f.saveOne(dir, GraphFileName, func(w *os.File) error {
		return encodeGraph(w, f.Graph.Nodes(), f.Graph.Arcs())
	}); err != nil {
		return fmt.Errorf("semfolder: save graph: %w", err)
	}
	if err := f.saveOne(dir, AssocFileName, func(w *os.File) error {
		return encodeAssoc(w, f.Files.Export())
	}); err != nil {
		return fmt.Errorf("semfolder: save assoc: %w", err)
	}
	return nil
}

func (f *Folder) saveOne(dir, finalName string, write func(*os.File) error) error {
	tmpName := filepath.Join(dir, finalName+"."+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, finalName))
}

// Load reads both metadata files out of dir and rebuilds a Folder bound to
// entrypoint. When either file is missing, os.IsNotExist(err) is true on
// the returned error.
func Load(dir, entrypoint string) (*Folder, error) {
	nodes, arcs, err := loadGraph(filepath.Join(dir, GraphFileName))
	if err != nil {
		return nil, err
	}
	assoc, err := loadAssoc(filepath.Join(dir, AssocFileName))
	if err != nil {
		return nil, err
	}

	g, err := taggraph.FromNodesAndArcs(nodes, arcs)
	if err != nil {
		return nil, fmt.Errorf("semfolder: rebuild graph: %w", err)
	}
	files, err := filetagmap.FromFileTags(assoc)
	if err != nil {
		return nil, fmt.Errorf("semfolder: rebuild assoc: %w", err)
	}

	return &Folder{entrypoint: entrypoint, Graph: g, Files: files}, nil
}

func loadGraph(path string) (nodes []string, arcs [][2]string, err error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	return decodeGraph(r)
}

func loadAssoc(path string) (map[string][]string, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return decodeAssoc(r)
}

// Cache bounds how many Folders stay resident in the process at once,
// evicting the least recently used entry point's Folder when full. Callers
// must save a Folder themselves before any point where it could be evicted
// (e.g. after every mutating operation) — the cache holds references, it
// does not track dirtiness.
type Cache struct {
	inner *lru.Cache[string, *Folder]
}

// NewCache returns a Cache holding at most size Folders.
func NewCache(size int) (*Cache, error) {
	inner, err := lru.New[string, *Folder](size)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached Folder for entrypoint, if resident.
func (c *Cache) Get(entrypoint string) (*Folder, bool) {
	return c.inner.Get(entrypoint)
}

// Put inserts or replaces the cached Folder for its own entry point.
func (c *Cache) Put(f *Folder) {
	c.inner.Add(f.Entrypoint(), f)
}

// Remove evicts entrypoint's Folder, if resident. Used when an entry point
// is deleted so a stale Folder can't be handed back out for a path that no
// longer exists.
func (c *Cache) Remove(entrypoint string) {
	c.inner.Remove(entrypoint)
}
