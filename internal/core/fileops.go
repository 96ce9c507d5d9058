package core

import (
	"errors"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Mknod creates a device/special file or, far more commonly, an empty
// regular file via mknod(2). Only standard objects and tagged objects are
// supported — a tag or entry point is a directory concept and can't be
// mknod'd into existence.
func (e *Engine) Mknod(path string, mode uint32, dev uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return err
	}
	if isReservedName(basename(norm)) {
		return errnoOf("mknod", path, syscall.EINVAL)
	}
	if !(info.IsTaggedObject() || info.IsStandardObject()) {
		return errnoOf("mknod", path, syscall.ENOTSUP)
	}

	if err := unix.Mknod(e.physical(norm), mode, int(dev)); err != nil {
		return wrapSys("mknod", path, err)
	}

	if info.IsTaggedObject() {
		folder, err := e.getFolder(info.Entrypoint())
		if err != nil {
			return wrapSys("mknod", path, err)
		}
		obj := info.Object()
		if folder.Files.HasFile(obj) {
			if err := folder.Files.AssignTags(obj, info.Tags()...); err != nil {
				return wrapSys("mknod", path, err)
			}
		} else if err := folder.Files.AddFile(obj, info.Tags()...); err != nil {
			return wrapSys("mknod", path, err)
		}
		return e.saveFolder(folder)
	}
	return nil
}

// Unlink implements unlink(2): a standard object is removed outright; a
// tagged object directly under the entry point is removed and forgotten;
// reached through one or more tags, only the last tag is dropped and the
// object itself survives.
func (e *Engine) Unlink(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return err
	}
	if isReservedName(basename(norm)) {
		return errnoOf("unlink", path, syscall.EINVAL)
	}

	if info.IsTag() || info.IsEntrypoint() {
		return errnoOf("unlink", path, syscall.EISDIR)
	}

	if !info.IsTaggedObject() {
		return wrapSys("unlink", path, os.Remove(e.physical(norm)))
	}

	folder, err := e.getFolder(info.Entrypoint())
	if err != nil {
		return wrapSys("unlink", path, err)
	}
	obj := info.Object()
	if len(info.Tags()) == 0 {
		if err := os.Remove(e.physical(norm)); err != nil {
			return wrapSys("unlink", path, err)
		}
		if err := folder.Files.RemoveFile(obj); err != nil {
			return wrapSys("unlink", path, err)
		}
	} else {
		last := info.Tags()[len(info.Tags())-1]
		if err := folder.Files.DiscardTags(obj, last); err != nil {
			return wrapSys("unlink", path, err)
		}
	}
	return e.saveFolder(folder)
}

// wantsWrite reports whether flags (the open(2) flag bits) request write
// access, the same test the original implementation uses to decide whether
// to open a ghost file session for a tagged object.
func wantsWrite(flags int) bool {
	return flags&(os.O_WRONLY|os.O_RDWR) != 0
}

func (e *Engine) newHandle(of *openFile) Handle {
	e.nextFH++
	h := e.nextFH
	e.openFiles[h] = of
	return h
}

// Open implements open(2). Opening a tagged object for write acquires (or
// joins the refcount of) a ghost file over its collapsed physical path:
// truncates and writes that reproduce the on-disk bytes stay private to the
// session until Release commits them, while a write whose bytes differ from
// disk is committed at once.
func (e *Engine) Open(path string, flags int) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return 0, err
	}
	if isReservedName(basename(norm)) {
		return 0, errnoOf("open", path, syscall.EINVAL)
	}

	fh, err := os.OpenFile(e.physical(norm), flags, 0)
	if err != nil {
		return 0, wrapSys("open", path, err)
	}

	of := &openFile{path: norm, file: fh}
	if wantsWrite(flags) && info.IsTaggedObject() {
		key := e.ghostKey(norm)
		if _, err := e.ghosts.Acquire(key); err != nil {
			fh.Close()
			return 0, wrapSys("open", path, err)
		}
		of.isGhost = true
		of.ghostKey = key
	}

	return e.newHandle(of), nil
}

// Create implements create(2): for a tagged object it also truncates the
// fresh ghost session to zero length and assigns the path's tags, adding
// the object to the entry point's namespace if it wasn't already there.
func (e *Engine) Create(path string, mode uint32) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return 0, err
	}
	if isReservedName(basename(norm)) {
		return 0, errnoOf("create", path, syscall.EINVAL)
	}
	if !(info.IsTaggedObject() || info.IsStandardObject()) {
		return 0, errnoOf("create", path, syscall.ENOTSUP)
	}

	fh, err := os.OpenFile(e.physical(norm), os.O_WRONLY|os.O_CREATE, os.FileMode(mode))
	if err != nil {
		return 0, wrapSys("create", path, err)
	}

	of := &openFile{path: norm, file: fh}

	if info.IsTaggedObject() {
		key := e.ghostKey(norm)
		gf, err := e.ghosts.Acquire(key)
		if err != nil {
			fh.Close()
			return 0, wrapSys("create", path, err)
		}
		gf.Truncate(0)
		of.isGhost = true
		of.ghostKey = key

		abort := func(err error) (Handle, error) {
			_ = e.ghosts.Release(key)
			fh.Close()
			return 0, err
		}

		folder, err := e.getFolder(info.Entrypoint())
		if err != nil {
			return abort(wrapSys("create", path, err))
		}
		obj := info.Object()
		if folder.Files.HasFile(obj) {
			if err := folder.Files.AssignTags(obj, info.Tags()...); err != nil {
				return abort(wrapSys("create", path, err))
			}
		} else if err := folder.Files.AddFile(obj, info.Tags()...); err != nil {
			return abort(wrapSys("create", path, err))
		}
		if err := e.saveFolder(folder); err != nil {
			return abort(err)
		}
	}

	return e.newHandle(of), nil
}

// Read implements read(2). The ghost table is consulted by the handle's
// virtual path, not by who opened it: while any writer holds a ghost
// session for this exact tag path, every reader of the same path sees the
// session's buffered view, and readers of a *different* tag path onto the
// same physical file keep seeing the real bytes.
func (e *Engine) Read(path string, fh Handle, length int, offset int64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	of, ok := e.openFiles[fh]
	if !ok {
		return nil, errnoOf("read", path, syscall.EBADF)
	}

	if gf, ok := e.ghosts.Get(e.ghostKey(of.path)); ok {
		data, err := gf.Read(of.file, length, offset)
		if err != nil {
			return nil, wrapSys("read", path, err)
		}
		return data, nil
	}

	buf := make([]byte, length)
	n, err := of.file.ReadAt(buf, offset)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, wrapSys("read", path, err)
	}
	return buf[:n], nil
}

// Write implements write(2), routed through the ghost file whenever one is
// active for the handle's virtual path.
func (e *Engine) Write(path string, fh Handle, buf []byte, offset int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	of, ok := e.openFiles[fh]
	if !ok {
		return 0, errnoOf("write", path, syscall.EBADF)
	}

	if gf, ok := e.ghosts.Get(e.ghostKey(of.path)); ok {
		n, err := gf.Write(of.file, buf, offset)
		if err != nil {
			return 0, wrapSys("write", path, err)
		}
		return n, nil
	}

	n, err := of.file.WriteAt(buf, offset)
	if err != nil {
		return n, wrapSys("write", path, err)
	}
	return n, nil
}

// Truncate implements truncate(2)/ftruncate(2). A ghost session's logical
// size changes without necessarily touching disk; everything else goes
// straight to the physical file.
func (e *Engine) Truncate(path string, size int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm := normalize(path)
	key := e.ghostKey(norm)
	if gf, ok := e.ghosts.Get(key); ok {
		gf.Truncate(size)
		return nil
	}

	if err := os.Truncate(e.physical(norm), size); err != nil {
		return wrapSys("truncate", path, err)
	}
	return nil
}

// Flush implements the flush callback: an fsync of the real descriptor.
// Divergent ghost bytes are deliberately not committed here — only Release
// applies them, matching the original semantics where a process can flush
// (e.g. on every close(2) of a duplicated descriptor) without forcing a
// premature write-back.
func (e *Engine) Flush(path string, fh Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	of, ok := e.openFiles[fh]
	if !ok {
		return errnoOf("flush", path, syscall.EBADF)
	}
	return wrapSys("flush", path, of.file.Sync())
}

// Fsync implements fsync(2)/fdatasync(2) as a synonym for Flush, the same
// way the original implementation does.
func (e *Engine) Fsync(path string, fh Handle, dataSync bool) error {
	return e.Flush(path, fh)
}

// Release implements close(2). For a ghost session this is the commit
// point: the full logical image (real bytes plus zero-filled gaps) is
// written to the real descriptor before it's closed, and the ghost file is
// dropped once every opener of this (physical, virtual) pair has released.
func (e *Engine) Release(path string, fh Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	of, ok := e.openFiles[fh]
	if !ok {
		return errnoOf("release", path, syscall.EBADF)
	}
	delete(e.openFiles, fh)

	if of.isGhost {
		gf, ok := e.ghosts.Get(of.ghostKey)
		if ok {
			if err := gf.Apply(of.file); err != nil {
				of.file.Close()
				return wrapSys("release", path, err)
			}
		}
		if err := e.ghosts.Release(of.ghostKey); err != nil {
			of.file.Close()
			return wrapSys("release", path, err)
		}
	}

	return wrapSys("release", path, of.file.Close())
}
