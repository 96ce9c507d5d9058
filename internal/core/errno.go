package core

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/danieleds/GFS/internal/filetagmap"
	"github.com/danieleds/GFS/internal/semfolder"
	"github.com/danieleds/GFS/internal/taggraph"
)

// Errno is the error type every Engine operation returns on failure. It
// always carries a POSIX errno so a transport adapter (the FUSE dispatcher,
// the NFS bridge) can translate it without guessing.
type Errno struct {
	Op    string
	Path  string
	Errno syscall.Errno
}

func (e *Errno) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Errno.Error())
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Errno.Error())
}

func errnoOf(op, path string, errno syscall.Errno) *Errno {
	return &Errno{Op: op, Path: path, Errno: errno}
}

// wrapSys turns a plain error coming out of an os/syscall call or one of
// the metadata layers into an *Errno: the syscall.Errno underneath a
// *os.PathError / *os.LinkError is kept as-is, the graph/filetag/semfolder
// sentinels map onto their POSIX equivalents, and anything else falls back
// to EIO. Returns nil unchanged.
func wrapSys(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := underlyingErrno(err); ok {
		return errnoOf(op, path, errno)
	}
	switch {
	case errors.Is(err, taggraph.ErrDuplicateNode), errors.Is(err, filetagmap.ErrDuplicateFile):
		return errnoOf(op, path, syscall.EEXIST)
	case errors.Is(err, taggraph.ErrMissingNode), errors.Is(err, filetagmap.ErrMissingFile):
		return errnoOf(op, path, syscall.ENOENT)
	case errors.Is(err, semfolder.ErrInvalidFormat):
		return errnoOf(op, path, syscall.EINVAL)
	}
	return errnoOf(op, path, syscall.EIO)
}

func underlyingErrno(err error) (syscall.Errno, bool) {
	for err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return errno, true
		}
		err = errors.Unwrap(err)
	}
	return 0, false
}
