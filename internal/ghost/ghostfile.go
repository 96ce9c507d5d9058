// Package ghost implements the write-buffering shim that lets the same
// underlying object present a different apparent size and content to every
// virtual path that maps onto it, for the duration of a single open
// session, without committing any byte to disk until the writer actually
// diverges from what's already there (spec §4.7).
package ghost

import (
	"bytes"
	"os"
)

// File tracks, for one physical data path, which byte ranges have been
// "really" written versus which are implicit zero-fill introduced by a
// truncate that grew the file. A write that reproduces bytes already on
// disk is recorded without touching the file at all; a write that diverges
// flushes the whole logical image to disk first so the physical file and
// the logical view agree again. This is what lets two hard-linked virtual
// paths into the same underlying object each see their own in-progress
// edits without the other observing a torn or wrong write before release.
type File struct {
	dataPath string
	reader   *os.File // used only to compare incoming writes against on-disk bytes
	size     int64
	written  intervalSet
}

// Open binds a File to the physical file at dataPath. The file need not
// exist yet; a missing file behaves as a zero-length one.
func Open(dataPath string) (*File, error) {
	size := int64(0)
	if fi, err := os.Stat(dataPath); err == nil {
		size = fi.Size()
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	reader, err := os.Open(dataPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	f := &File{dataPath: dataPath, reader: reader, size: size}
	f.written.reset(size)
	return f, nil
}

// Size returns the file's current logical size.
func (f *File) Size() int64 { return f.size }

// Truncate sets the logical size to length, as if by POSIX truncate(2).
// Growing the file introduces an implicit zero-filled gap that is never
// written to disk unless a later Write or Apply forces a real flush.
func (f *File) Truncate(length int64) {
	f.written.truncateTo(length)
	f.size = length
}

// isSameData reports whether buf already matches the bytes on disk at
// offset, so that a write that changes nothing can be recorded without
// touching the physical file.
func (f *File) isSameData(buf []byte, offset int64) bool {
	if f.reader == nil {
		return false
	}
	existing := make([]byte, len(buf))
	n, err := f.reader.ReadAt(existing, offset)
	if err != nil && n != len(buf) {
		return false
	}
	return bytes.Equal(buf, existing[:n])
}

// Write records a write of buf at offset against handle fh, the real
// backing file opened for read-write by the caller. If buf reproduces what
// is already on disk, nothing is written — the range is merely marked
// written in the logical view. Otherwise the logical image (real bytes
// plus zero-filled gaps) is flushed to fh first, then buf is written for
// real, and the File's bookkeeping collapses back to "everything up to the
// new size is real" since the physical file now matches the logical one.
func (f *File) Write(fh *os.File, buf []byte, offset int64) (int, error) {
	reproducesOnDisk := offset+int64(len(buf)) <= f.currentOnDiskSize() && f.isSameData(buf, offset)

	if reproducesOnDisk {
		f.written.add(offset, offset+int64(len(buf)))
		if grown := offset + int64(len(buf)); grown > f.size {
			f.size = grown
		}
		return len(buf), nil
	}

	f.written.add(offset, offset+int64(len(buf)))
	if grown := offset + int64(len(buf)); grown > f.size {
		f.size = grown
	}

	if err := f.flushTo(fh); err != nil {
		return 0, err
	}

	n, err := fh.WriteAt(buf, offset)
	if err != nil {
		return n, err
	}

	if fi, err := fh.Stat(); err == nil {
		f.size = fi.Size()
	}
	f.written.reset(f.size)

	return n, nil
}

func (f *File) currentOnDiskSize() int64 {
	fi, err := os.Stat(f.dataPath)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Read returns up to length bytes starting at offset, reconstructing real
// bytes from fh where the logical view says they're genuinely written and
// zero-filling every gap.
func (f *File) Read(fh *os.File, length int, offset int64) ([]byte, error) {
	if offset >= f.size || length == 0 {
		return []byte{}, nil
	}
	end := offset + int64(length)
	if end > f.size {
		end = f.size
	}

	ivs := f.written.overlapping(offset, end)
	if len(ivs) == 0 {
		return make([]byte, end-offset), nil
	}

	out := make([]byte, 0, end-offset)
	cursor := offset
	for _, iv := range ivs {
		if iv.Begin > cursor {
			out = append(out, make([]byte, iv.Begin-cursor)...)
		}
		chunk := make([]byte, iv.length())
		n, err := fh.ReadAt(chunk, iv.Begin)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err != nil && n < len(chunk) {
			// Short read at EOF: pad the rest of this interval with zeros
			// rather than surfacing io.EOF to a caller expecting a byte count.
			out = append(out, make([]byte, len(chunk)-n)...)
		}
		cursor = iv.End
	}
	if end > cursor {
		out = append(out, make([]byte, end-cursor)...)
	}

	return out, nil
}

// Apply flushes the full logical image (real bytes plus zero-filled gaps)
// to fh so the physical file matches what readers have been seeing, then
// resets the bookkeeping to "everything up to size is real". Used when a
// tagged-object view is released back to its underlying shared object.
func (f *File) Apply(fh *os.File) error {
	if err := f.flushTo(fh); err != nil {
		return err
	}
	f.written.reset(f.size)
	return nil
}

// flushTo writes every gap in the logical image as zero bytes to fh and
// truncates fh to the logical size, without touching ranges already
// genuinely present in the written set.
func (f *File) flushTo(fh *os.File) error {
	var cursor int64
	for _, iv := range f.written.ivs {
		if iv.Begin > cursor {
			if err := writeZeros(fh, cursor, iv.Begin-cursor); err != nil {
				return err
			}
		}
		cursor = iv.End
	}
	if f.size > cursor {
		if err := writeZeros(fh, cursor, f.size-cursor); err != nil {
			return err
		}
	}
	return fh.Truncate(f.size)
}

func writeZeros(fh *os.File, offset, n int64) error {
	const chunkSize = 64 * 1024
	zeros := make([]byte, chunkSize)
	for n > 0 {
		m := n
		if m > chunkSize {
			m = chunkSize
		}
		if _, err := fh.WriteAt(zeros[:m], offset); err != nil {
			return err
		}
		offset += m
		n -= m
	}
	return nil
}

// Release closes the File's internal read handle. The File must not be
// used after this call.
func (f *File) Release() error {
	if f.reader == nil {
		return nil
	}
	return f.reader.Close()
}
