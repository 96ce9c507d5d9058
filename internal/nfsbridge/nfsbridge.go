// Package nfsbridge adapts core.Engine to billy.Filesystem, the interface
// willscott/go-nfs expects its exported tree to implement. Like
// internal/dispatcher, every method here is argument/return-convention
// translation only: the semantic folder bookkeeping, the rename matrix, and
// the ghost-file write buffering all stay in internal/core.
package nfsbridge

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/danieleds/GFS/internal/core"
)

// FS wraps a core.Engine for use as the tree argument to an NFS server.
type FS struct {
	engine *core.Engine
}

// New wraps engine for serving over NFS.
func New(engine *core.Engine) *FS {
	return &FS{engine: engine}
}

func toPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*core.Errno); ok {
		return &os.PathError{Op: op, Path: path, Err: e.Errno}
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}

// --- billy.Basic ---

func (fs *FS) Create(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (fs *FS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	var (
		h   core.Handle
		err error
	)
	if flag&os.O_CREATE != 0 {
		h, err = fs.engine.Create(filename, uint32(perm))
	} else {
		h, err = fs.engine.Open(filename, flag)
	}
	if err != nil {
		return nil, toPathErr("open", filename, err)
	}
	if flag&os.O_TRUNC != 0 {
		if err := fs.engine.Truncate(filename, 0); err != nil {
			fs.engine.Release(filename, h)
			return nil, toPathErr("open", filename, err)
		}
	}
	f := &file{engine: fs.engine, path: filename, handle: h}
	if flag&os.O_APPEND != 0 {
		if attr, err := fs.engine.Getattr(filename); err == nil {
			f.pos = attr.Size
		}
	}
	return f, nil
}

func (fs *FS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *FS) Rename(oldpath, newpath string) error {
	return toPathErr("rename", oldpath, fs.engine.Rename(oldpath, newpath))
}

func (fs *FS) Remove(filename string) error {
	info, err := fs.Lstat(filename)
	if err != nil {
		return toPathErr("remove", filename, err)
	}
	if info.IsDir() {
		return toPathErr("remove", filename, fs.engine.Rmdir(filename))
	}
	return toPathErr("remove", filename, fs.engine.Unlink(filename))
}

func (fs *FS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

// TempFile isn't supported: every writable path in this tree is either a
// standard object or a tagged object with a real entry-point home, neither
// of which fits the "anonymous scratch file in dir" contract go-billy
// assumes here.
func (fs *FS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *FS) ReadDir(path string) ([]os.FileInfo, error) {
	names, err := fs.engine.Readdir(path)
	if err != nil {
		return nil, toPathErr("readdir", path, err)
	}
	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		child := fs.Join(path, name)
		attr, err := fs.engine.Getattr(child)
		if err != nil {
			// A concurrent unlink between Readdir and Getattr; drop the
			// entry rather than failing the whole listing.
			log.Printf("semanticfs/nfsbridge: readdir %s: skip %s: %v", path, name, err)
			continue
		}
		infos = append(infos, &fileInfo{name: name, attr: attr})
	}
	return infos, nil
}

// MkdirAll creates every missing path component as an entry point, tag, or
// tagged-object directory in turn — core.Engine.Mkdir only ever creates one
// level, the same as mkdir(2).
func (fs *FS) MkdirAll(filename string, perm os.FileMode) error {
	clean := filepath.Clean("/" + filename)
	if clean == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	built := ""
	for _, part := range parts {
		built += "/" + part
		if _, err := fs.Lstat(built); err == nil {
			continue
		}
		if err := fs.engine.Mkdir(built, uint32(perm)); err != nil {
			if e, ok := err.(*core.Errno); !ok || e.Errno != syscall.EEXIST {
				return toPathErr("mkdirall", built, err)
			}
		}
	}
	return nil
}

// --- billy.Symlink ---

func (fs *FS) Lstat(filename string) (os.FileInfo, error) {
	attr, err := fs.engine.Getattr(filename)
	if err != nil {
		return nil, toPathErr("lstat", filename, err)
	}
	return &fileInfo{name: filepath.Base(filename), attr: attr}, nil
}

func (fs *FS) Symlink(target, link string) error {
	return toPathErr("symlink", link, fs.engine.Symlink(target, link))
}

func (fs *FS) Readlink(link string) (string, error) {
	target, err := fs.engine.Readlink(link)
	if err != nil {
		return "", toPathErr("readlink", link, err)
	}
	return target, nil
}

// --- billy.Chroot ---

func (fs *FS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *FS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *FS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.WriteCapability | billy.ReadAndWriteCapability |
		billy.SeekCapability | billy.TruncateCapability
}

// file implements billy.File over a single core.Engine handle.
type file struct {
	engine *core.Engine
	path   string
	handle core.Handle
	pos    int64
	closed bool
}

func (f *file) Name() string { return f.path }

func (f *file) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	data, err := f.engine.Read(f.path, f.handle, len(p), off)
	if err != nil {
		return 0, toPathErr("read", f.path, err)
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *file) Write(p []byte) (int, error) {
	n, err := f.engine.Write(f.path, f.handle, p, f.pos)
	f.pos += int64(n)
	if err != nil {
		return n, toPathErr("write", f.path, err)
	}
	return n, nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		attr, err := f.engine.Getattr(f.path)
		if err != nil {
			return 0, toPathErr("seek", f.path, err)
		}
		newPos = attr.Size + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *file) Truncate(size int64) error {
	return toPathErr("truncate", f.path, f.engine.Truncate(f.path, size))
}

func (f *file) Lock() error   { return nil }
func (f *file) Unlock() error { return nil }

func (f *file) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.engine.Flush(f.path, f.handle); err != nil {
		f.engine.Release(f.path, f.handle)
		return toPathErr("close", f.path, err)
	}
	return toPathErr("close", f.path, f.engine.Release(f.path, f.handle))
}

// fileInfo implements os.FileInfo from a core.Attr.
type fileInfo struct {
	name string
	attr core.Attr
}

const sIFDIR = 0o040000
const sIFLNK = 0o120000

func (fi *fileInfo) Name() string { return fi.name }
func (fi *fileInfo) Size() int64  { return fi.attr.Size }
func (fi *fileInfo) Mode() os.FileMode {
	perm := os.FileMode(fi.attr.Mode & 0o777)
	switch fi.attr.Mode & 0o170000 {
	case sIFDIR:
		return perm | os.ModeDir
	case sIFLNK:
		return perm | os.ModeSymlink
	default:
		return perm
	}
}
func (fi *fileInfo) ModTime() time.Time { return fi.attr.Mtime }
func (fi *fileInfo) IsDir() bool        { return fi.attr.Mode&0o170000 == sIFDIR }
func (fi *fileInfo) Sys() interface{}   { return fi.attr }

var (
	_ billy.Filesystem = (*FS)(nil)
	_ billy.Capable    = (*FS)(nil)
	_ billy.File       = (*file)(nil)
	_ os.FileInfo      = (*fileInfo)(nil)
)
