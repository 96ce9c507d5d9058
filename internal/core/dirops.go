package core

import (
	"os"
	"syscall"

	"github.com/danieleds/GFS/internal/pathinfo"
	"github.com/danieleds/GFS/internal/semfolder"
)

// Mkdir implements mkdir(2) across all four path kinds:
//
//   - standard object: an ordinary directory create.
//   - entry point: creates the directory and initializes an empty
//     SemanticFolder for it.
//   - tag: creates the tag's node (and its backing directory) if this tag
//     name hasn't been used anywhere in the entry point yet, and always
//     adds the arc from the containing tag. Fails if the tag name already
//     appears earlier in the path — a tag can't be traversed twice.
//   - tagged object: creates the backing directory (unless a file of this
//     name already exists under the entry point, in which case this call
//     just adds tags to it) and assigns the path's tags to it.
func (e *Engine) Mkdir(path string, mode uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return err
	}
	if isReservedName(basename(norm)) {
		return errnoOf("mkdir", path, syscall.EINVAL)
	}

	switch {
	case info.IsTag():
		return e.mkdirTag(path, norm, info, mode)
	case info.IsEntrypoint():
		if err := os.Mkdir(e.physical(norm), os.FileMode(mode)); err != nil {
			return wrapSys("mkdir", path, err)
		}
		return e.saveFolder(semfolder.NewEmpty(norm))
	case info.IsTaggedObject():
		return e.mkdirTaggedObject(path, norm, info, mode)
	default:
		if err := os.Mkdir(e.physical(norm), os.FileMode(mode)); err != nil {
			return wrapSys("mkdir", path, err)
		}
		return nil
	}
}

func (e *Engine) mkdirTag(origPath, norm string, info pathinfo.Info, mode uint32) error {
	tags := info.Tags()
	last := tags[len(tags)-1]
	for _, t := range tags[:len(tags)-1] {
		if t == last {
			return errnoOf("mkdir", origPath, syscall.EEXIST)
		}
	}

	folder, err := e.getFolder(info.Entrypoint())
	if err != nil {
		return wrapSys("mkdir", origPath, err)
	}

	if !folder.Graph.HasNode(last) {
		if err := os.Mkdir(e.physical(norm), os.FileMode(mode)); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
		if err := folder.Graph.AddNode(last); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
	}
	if len(tags) >= 2 {
		if err := folder.Graph.AddArc(tags[len(tags)-2], last); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
	}

	return e.saveFolder(folder)
}

func (e *Engine) mkdirTaggedObject(origPath, norm string, info pathinfo.Info, mode uint32) error {
	folder, err := e.getFolder(info.Entrypoint())
	if err != nil {
		return wrapSys("mkdir", origPath, err)
	}

	obj := info.Object()
	if folder.Files.HasFile(obj) {
		if err := folder.Files.AssignTags(obj, info.Tags()...); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
	} else {
		if err := os.Mkdir(e.physical(norm), os.FileMode(mode)); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
		if err := folder.Files.AddFile(obj, info.Tags()...); err != nil {
			return wrapSys("mkdir", origPath, err)
		}
	}

	return e.saveFolder(folder)
}

// Rmdir implements rmdir(2):
//
//   - standard object / entry point directory that still has user content:
//     ordinary behavior, fails with ENOTEMPTY.
//   - entry point that's logically empty (nothing but the two metadata
//     files left): removes the metadata and the directory.
//   - tag directly under the entry point: removes the backing directory,
//     discards the tag from every file that carried it, then removes its
//     node from the graph (dropping the tag everywhere). Tag nodes within
//     another tag only drop the containing arc — the node, and the
//     underlying directory, survive.
//   - tagged object directly under the entry point: removed like a normal
//     directory (fails if non-empty) and forgotten by the file-tag map.
//     Reached through one or more tags: only the last tag is dropped.
func (e *Engine) Rmdir(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return err
	}

	switch {
	case info.IsTag():
		folder, err := e.getFolder(info.Entrypoint())
		if err != nil {
			return wrapSys("rmdir", path, err)
		}
		if err := e.rmdirTag(path, norm, info, folder); err != nil {
			return err
		}
		return e.saveFolder(folder)

	case info.IsEntrypoint():
		dir := e.physical(norm)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return wrapSys("rmdir", path, err)
		}
		for _, ent := range entries {
			if !isReservedName(ent.Name()) {
				return errnoOf("rmdir", path, syscall.ENOTEMPTY)
			}
		}
		for _, ent := range entries {
			_ = os.Remove(dir + "/" + ent.Name())
		}
		if err := os.Remove(dir); err != nil {
			return wrapSys("rmdir", path, err)
		}
		e.dropFolder(norm)
		return nil

	case info.IsTaggedObject():
		folder, err := e.getFolder(info.Entrypoint())
		if err != nil {
			return wrapSys("rmdir", path, err)
		}
		obj := info.Object()
		if len(info.Tags()) == 0 {
			if err := os.Remove(e.physical(norm)); err != nil {
				return wrapSys("rmdir", path, err)
			}
			if err := folder.Files.RemoveFile(obj); err != nil {
				return wrapSys("rmdir", path, err)
			}
		} else {
			last := info.Tags()[len(info.Tags())-1]
			if err := folder.Files.DiscardTags(obj, last); err != nil {
				return wrapSys("rmdir", path, err)
			}
		}
		return e.saveFolder(folder)

	default:
		if err := os.Remove(e.physical(norm)); err != nil {
			return wrapSys("rmdir", path, err)
		}
		return nil
	}
}

func (e *Engine) rmdirTag(origPath, norm string, info pathinfo.Info, folder *semfolder.Folder) error {
	tags := info.Tags()
	last := tags[len(tags)-1]

	if len(tags) == 1 {
		if err := os.Remove(e.physical(norm)); err != nil {
			return wrapSys("rmdir", origPath, err)
		}
		for _, f := range folder.Files.TaggedFiles([]string{last}) {
			_ = folder.Files.DiscardTags(f, last)
		}
		if err := folder.Graph.RemoveNode(last); err != nil {
			return wrapSys("rmdir", origPath, err)
		}
		return nil
	}

	prev := tags[len(tags)-2]
	return wrapSys("rmdir", origPath, folder.Graph.RemoveArc(prev, last))
}

// Readdir lists path's logical directory entries: for a tag, the tags
// reachable by one more arc plus every file carrying the full tag chain so
// far, minus whichever tags have already been traversed to reach here (so
// the same tag can't be walked twice in one path); for anything else, the
// real directory listing. Reserved metadata filenames never appear.
func (e *Engine) Readdir(path string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, info, err := classify(path)
	if err != nil {
		return nil, err
	}

	var names []string

	if info.IsTag() {
		folder, err := e.getFolder(info.Entrypoint())
		if err != nil {
			return nil, wrapSys("readdir", path, err)
		}
		tags := info.Tags()
		last := tags[len(tags)-1]
		outgoing, err := folder.Graph.OutgoingArcs(last)
		if err != nil {
			return nil, wrapSys("readdir", path, err)
		}
		names = append(names, outgoing...)
		names = append(names, folder.Files.TaggedFiles(tags)...)
	} else {
		entries, err := os.ReadDir(e.physical(norm))
		if err != nil {
			return nil, wrapSys("readdir", path, err)
		}
		for _, ent := range entries {
			names = append(names, ent.Name())
		}
	}

	traversed := make(map[string]struct{}, len(info.Tags()))
	for _, t := range info.Tags() {
		traversed[t] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if isReservedName(n) {
			continue
		}
		if _, seen := traversed[n]; seen {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
