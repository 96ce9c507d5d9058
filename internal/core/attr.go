package core

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/danieleds/GFS/internal/ghost"
	"github.com/danieleds/GFS/internal/pathinfo"
)

// Attr is the subset of stat(2) fields a dispatcher needs to answer
// getattr. Times are exposed as time.Time rather than raw timespecs so
// both the cgofuse and billy adapters can convert to their own native
// representations without reaching back into unix.Stat_t themselves.
type Attr struct {
	Mode  uint32
	Nlink uint32
	Size  int64
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func attrFromStat(st *unix.Stat_t) Attr {
	return Attr{
		Mode:  st.Mode,
		Nlink: uint32(st.Nlink),
		Size:  st.Size,
		Uid:   st.Uid,
		Gid:   st.Gid,
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Ctime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
	}
}

// Getattr returns the attributes of path, as lstat(2) would, except that a
// tagged object with an in-progress divergent write reports the ghost
// file's logical size rather than whatever is currently flushed to disk.
func (e *Engine) Getattr(path string) (Attr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, _, err := classify(path)
	if err != nil {
		return Attr{}, err
	}
	if isReservedName(basename(norm)) {
		return Attr{}, errnoOf("getattr", path, syscall.EINVAL)
	}
	if !e.exists(norm) {
		return Attr{}, errnoOf("getattr", path, syscall.ENOENT)
	}

	var st unix.Stat_t
	if err := unix.Lstat(e.physical(norm), &st); err != nil {
		return Attr{}, wrapSys("getattr", path, err)
	}
	attr := attrFromStat(&st)

	if gf, ok := e.ghosts.Get(e.ghostKey(norm)); ok {
		attr.Size = gf.Size()
	}

	return attr, nil
}

// StatfsInfo mirrors the statvfs(2) fields the original filesystem passes
// through unchanged.
type StatfsInfo struct {
	Bavail  uint64
	Bfree   uint64
	Blocks  uint64
	Bsize   uint64
	Favail  uint64
	Ffree   uint64
	Files   uint64
	Flag    uint64
	Frsize  uint64
	Namemax uint64
}

// Statfs passes statvfs(2) through to the physical filesystem backing
// path. The semantic layer doesn't change free-space accounting: a tagged
// object still occupies exactly one inode on the datastore volume no
// matter how many tag paths reach it.
func (e *Engine) Statfs(path string) (StatfsInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	var st unix.Statfs_t
	if err := unix.Statfs(e.physical(norm), &st); err != nil {
		return StatfsInfo{}, wrapSys("statfs", path, err)
	}
	return StatfsInfo{
		Bavail:  st.Bavail,
		Bfree:   st.Bfree,
		Blocks:  st.Blocks,
		Bsize:   uint64(st.Bsize),
		Favail:  st.Ffree,
		Ffree:   st.Ffree,
		Files:   st.Files,
		Flag:    uint64(st.Flags),
		Frsize:  uint64(st.Frsize),
		Namemax: uint64(st.Namelen),
	}, nil
}

// Access checks path against mode, the same set of R_OK/W_OK/X_OK/F_OK
// bits access(2) accepts.
func (e *Engine) Access(path string, mode uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	if err := unix.Access(e.physical(norm), mode); err != nil {
		return errnoOf("access", path, syscall.EACCES)
	}
	return nil
}

// Chmod passes through to the physical object.
func (e *Engine) Chmod(path string, mode uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	return wrapSys("chmod", path, os.Chmod(e.physical(norm), os.FileMode(mode)))
}

// Chown passes through to the physical object.
func (e *Engine) Chown(path string, uid, gid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	return wrapSys("chown", path, os.Chown(e.physical(norm), uid, gid))
}

// Utimens passes through to the physical object.
func (e *Engine) Utimens(path string, atime, mtime time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	return wrapSys("utimens", path, os.Chtimes(e.physical(norm), atime, mtime))
}

// Readlink passes through to the physical object for standard paths only.
// Links never cross into a semantic directory (see Symlink), so a readlink
// on a semantic path has nothing valid to resolve.
func (e *Engine) Readlink(path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return "", err
	}
	if !info.IsStandardObject() {
		return "", errnoOf("readlink", path, syscall.ENOTSUP)
	}
	target, err := os.Readlink(e.physical(norm))
	if err != nil {
		return "", wrapSys("readlink", path, err)
	}
	return target, nil
}

// Symlink creates a symlink at path pointing at target. A link is refused
// whenever either endpoint crosses a semantic boundary: a symlink stored
// inside an entry point would dangle or alias unpredictably once its
// neighbors are re-tagged, and a standard symlink into a tag path would
// bypass the semantic existence checks entirely. Absolute targets are
// classified like any other virtual path; relative targets can't be (their
// meaning depends on the final mount-side location), so only the link's own
// location is checked for those.
func (e *Engine) Symlink(target, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return err
	}
	if !info.IsStandardObject() {
		return errnoOf("symlink", path, syscall.ENOTSUP)
	}
	if len(target) > 0 && target[0] == '/' {
		tinfo, err := pathinfo.New(normalize(target))
		if err != nil || !tinfo.IsStandardObject() {
			return errnoOf("symlink", path, syscall.ENOTSUP)
		}
	}
	return wrapSys("symlink", path, os.Symlink(target, e.physical(norm)))
}

// ghostKey computes the ghost-table key for a normalized virtual path: the
// collapsed physical location plus the virtual path itself, so two
// distinct tag paths into the same physical file get independent ghost
// sessions.
func (e *Engine) ghostKey(normalizedPath string) ghost.Key {
	return ghost.Key{PhysicalPath: e.physical(normalizedPath), VirtualPath: normalizedPath}
}
