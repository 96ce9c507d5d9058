package core

import (
	"os"
	"syscall"

	"github.com/danieleds/GFS/internal/pathinfo"
	"github.com/danieleds/GFS/internal/semfolder"
)

// Rename implements rename(2) across the full matrix of source and
// destination kinds:
//
//	Source \ Dest   Standard   Entry Point   Tag     Tagged obj
//	Standard file    OK         ENOTSUP       ENOTSUP OK
//	Standard dir     OK         OK            ENOTSUP OK
//	Entry point      ENOTSUP    OK            ENOTSUP ENOTSUP
//	Tag              OK         ENOTSUP       OK¹     OK
//	Tagged file      OK         ENOTSUP       ENOTSUP OK²
//	Tagged folder    OK         OK            ENOTSUP OK²
//
// ¹ same entry point only, and either the node name changes (same parent)
// or the parent changes (same leaf) — never both at once.
// ² same entry point: either the object name changes (same tags) or the
// tag set changes (same name), never both; across entry points the object
// is extracted and re-added under the destination's tags.
func (e *Engine) Rename(oldPath, newPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	oldNorm, oldInfo, err := classify(oldPath)
	if err != nil {
		return err
	}
	newNorm, newInfo, err := classify(newPath)
	if err != nil {
		return err
	}
	if oldNorm == newNorm {
		return nil
	}

	if isReservedName(basename(oldNorm)) {
		return errnoOf("rename", oldPath, syscall.EINVAL)
	}
	if isReservedName(basename(newNorm)) {
		return errnoOf("rename", newPath, syscall.EINVAL)
	}
	if e.exists(newNorm) {
		return errnoOf("rename", newPath, syscall.EEXIST)
	}

	switch {
	case oldInfo.IsEntrypoint():
		return e.moveEntryPoint(oldPath, newPath, oldNorm, newNorm, oldInfo, newInfo)
	case oldInfo.IsTag():
		return e.moveTag(oldPath, newPath, oldNorm, newNorm, oldInfo, newInfo)
	case oldInfo.IsTaggedObject():
		return e.moveTaggedObj(oldPath, newPath, oldNorm, newNorm, oldInfo, newInfo)
	default:
		return e.moveStandardObj(oldPath, newPath, oldNorm, newNorm, oldInfo, newInfo)
	}
}

func (e *Engine) moveStandardObj(oldPath, newPath, oldNorm, newNorm string, oldInfo, newInfo pathinfo.Info) error {
	oldDS, newDS := e.physical(oldNorm), e.physical(newNorm)
	wasFile := isFile(oldDS)

	switch {
	case newInfo.IsStandardObject():
		return wrapSys("rename", newPath, os.Rename(oldDS, newDS))

	case newInfo.IsEntrypoint():
		if wasFile {
			return errnoOf("rename", newPath, syscall.ENOTSUP)
		}
		if err := os.Rename(oldDS, newDS); err != nil {
			return wrapSys("rename", newPath, err)
		}
		folder := semfolder.NewEmpty(newNorm)
		entries, err := os.ReadDir(newDS)
		if err != nil {
			return wrapSys("rename", newPath, err)
		}
		for _, ent := range entries {
			if err := folder.Files.AddFile(ent.Name()); err != nil {
				return wrapSys("rename", newPath, err)
			}
		}
		return e.saveFolder(folder)

	case newInfo.IsTag():
		return errnoOf("rename", newPath, syscall.ENOTSUP)

	case newInfo.IsTaggedObject():
		folder, err := e.getFolder(newInfo.Entrypoint())
		if err != nil {
			return wrapSys("rename", newPath, err)
		}
		if err := os.Rename(oldDS, newDS); err != nil {
			return wrapSys("rename", newPath, err)
		}
		obj := newInfo.Object()
		if folder.Files.HasFile(obj) {
			if err := folder.Files.AssignTags(obj, newInfo.Tags()...); err != nil {
				return wrapSys("rename", newPath, err)
			}
		} else if err := folder.Files.AddFile(obj, newInfo.Tags()...); err != nil {
			return wrapSys("rename", newPath, err)
		}
		return e.saveFolder(folder)

	default:
		return errnoOf("rename", newPath, syscall.ENOTSUP)
	}
}

func (e *Engine) moveEntryPoint(oldPath, newPath, oldNorm, newNorm string, oldInfo, newInfo pathinfo.Info) error {
	if newInfo.IsEntrypoint() {
		if err := os.Rename(e.physical(oldNorm), e.physical(newNorm)); err != nil {
			return wrapSys("rename", newPath, err)
		}
		e.dropFolder(oldNorm)
		return nil
	}
	return errnoOf("rename", newPath, syscall.ENOTSUP)
}

func (e *Engine) moveTag(oldPath, newPath, oldNorm, newNorm string, oldInfo, newInfo pathinfo.Info) error {
	oldTags, newTags := oldInfo.Tags(), newInfo.Tags()
	sameSpace := oldInfo.Entrypoint() == newInfo.Entrypoint()

	switch {
	case newInfo.IsStandardObject() || newInfo.IsTaggedObject():
		return e.convertTagToFolder(oldPath, newPath, oldNorm, newNorm, oldInfo, newInfo)

	case newInfo.IsEntrypoint():
		return errnoOf("rename", newPath, syscall.ENOTSUP)

	case newInfo.IsTag():
		if !sameSpace {
			return errnoOf("rename", newPath, syscall.ENOTSUP)
		}

		oldPrefix, newPrefix := oldTags[:len(oldTags)-1], newTags[:len(newTags)-1]
		oldLast, newLast := oldTags[len(oldTags)-1], newTags[len(newTags)-1]

		switch {
		case equalStringSlice(oldPrefix, newPrefix) && oldLast != newLast:
			folder, err := e.getFolder(oldInfo.Entrypoint())
			if err != nil {
				return wrapSys("rename", newPath, err)
			}
			if err := os.Rename(e.physical(oldNorm), e.physical(newNorm)); err != nil {
				return wrapSys("rename", newPath, err)
			}
			if err := folder.Graph.RenameNode(oldLast, newLast); err != nil {
				return wrapSys("rename", newPath, err)
			}
			folder.Files.RenameTag(oldLast, newLast)
			return e.saveFolder(folder)

		case !equalStringSlice(oldPrefix, newPrefix) && oldLast == newLast:
			if len(oldTags) < 2 {
				return errnoOf("rename", newPath, syscall.ENOTSUP)
			}
			folder, err := e.getFolder(oldInfo.Entrypoint())
			if err != nil {
				return wrapSys("rename", newPath, err)
			}
			if err := folder.Graph.RemoveArc(oldTags[len(oldTags)-2], oldLast); err != nil {
				return wrapSys("rename", newPath, err)
			}
			if err := folder.Graph.AddArc(newTags[len(newTags)-2], newLast); err != nil {
				return wrapSys("rename", newPath, err)
			}
			return e.saveFolder(folder)

		default:
			return errnoOf("rename", newPath, syscall.ENOTSUP)
		}

	default:
		return errnoOf("rename", newPath, syscall.ENOTSUP)
	}
}

// convertTagToFolder turns a tag directory into a standard or tagged
// object: every file the tag currently reaches has the tag dropped and a
// copy placed in the destination directory, then the tag's graph
// membership (node or arc, depending on depth) is removed.
func (e *Engine) convertTagToFolder(oldPath, newPath, oldNorm, newNorm string, oldInfo, newInfo pathinfo.Info) error {
	newDS := e.physical(newNorm)
	folder, err := e.getFolder(oldInfo.Entrypoint())
	if err != nil {
		return wrapSys("rename", newPath, err)
	}

	if err := os.Mkdir(newDS, 0o755); err != nil {
		return wrapSys("rename", newPath, err)
	}

	oldTags := oldInfo.Tags()
	last := oldTags[len(oldTags)-1]
	files := folder.Files.TaggedFiles(oldTags)
	for _, f := range files {
		_ = folder.Files.DiscardTags(f, last)
		srcPath := e.physical(oldNorm + "/" + f)
		if isFile(srcPath) {
			if err := copyFile(srcPath, newDS+"/"+f); err != nil {
				return wrapSys("rename", newPath, err)
			}
		} else if err := copyTree(srcPath, newDS+"/"+f); err != nil {
			return wrapSys("rename", newPath, err)
		}
	}

	if err := e.rmdirTag(oldPath, oldNorm, oldInfo, folder); err != nil {
		return err
	}
	if err := e.saveFolder(folder); err != nil {
		return err
	}

	if newInfo.IsTaggedObject() {
		destFolder, err := e.getFolder(newInfo.Entrypoint())
		if err != nil {
			return wrapSys("rename", newPath, err)
		}
		if err := destFolder.Files.AddFile(newInfo.Object(), newInfo.Tags()...); err != nil {
			return wrapSys("rename", newPath, err)
		}
		return e.saveFolder(destFolder)
	}
	return nil
}

func (e *Engine) moveTaggedObj(oldPath, newPath, oldNorm, newNorm string, oldInfo, newInfo pathinfo.Info) error {
	oldDS, newDS := e.physical(oldNorm), e.physical(newNorm)
	wasFile := isFile(oldDS)
	sameSpace := oldInfo.Entrypoint() == newInfo.Entrypoint()

	switch {
	case newInfo.IsStandardObject():
		return e.extractTaggedObject(oldPath, newPath, oldNorm, newNorm, oldInfo)

	case newInfo.IsEntrypoint():
		if wasFile {
			return errnoOf("rename", newPath, syscall.ENOTSUP)
		}
		if err := e.extractTaggedObject(oldPath, newPath, oldNorm, newNorm, oldInfo); err != nil {
			return err
		}
		folder := semfolder.NewEmpty(newNorm)
		entries, err := os.ReadDir(newDS)
		if err != nil {
			return wrapSys("rename", newPath, err)
		}
		for _, ent := range entries {
			if err := folder.Files.AddFile(ent.Name()); err != nil {
				return wrapSys("rename", newPath, err)
			}
		}
		return e.saveFolder(folder)

	case newInfo.IsTag():
		return errnoOf("rename", newPath, syscall.ENOTSUP)

	case newInfo.IsTaggedObject():
		if sameSpace {
			oldObj, newObj := oldInfo.Object(), newInfo.Object()
			oldTags, newTags := oldInfo.Tags(), newInfo.Tags()

			switch {
			case oldObj != newObj && sameStringSet(oldTags, newTags):
				folder, err := e.getFolder(newInfo.Entrypoint())
				if err != nil {
					return wrapSys("rename", newPath, err)
				}
				if err := os.Rename(oldDS, newDS); err != nil {
					return wrapSys("rename", newPath, err)
				}
				if err := folder.Files.RenameFile(oldObj, newObj); err != nil {
					return wrapSys("rename", newPath, err)
				}
				return e.saveFolder(folder)

			case oldObj != newObj && !sameStringSet(oldTags, newTags):
				return errnoOf("rename", newPath, syscall.ENOTSUP)

			default: // oldObj == newObj && tag sets differ
				folder, err := e.getFolder(newInfo.Entrypoint())
				if err != nil {
					return wrapSys("rename", newPath, err)
				}
				if len(oldTags) > 0 {
					if err := folder.Files.DiscardTags(oldObj, oldTags[len(oldTags)-1]); err != nil {
						return wrapSys("rename", newPath, err)
					}
				}
				if err := folder.Files.AssignTags(newObj, newTags...); err != nil {
					return wrapSys("rename", newPath, err)
				}
				return e.saveFolder(folder)
			}
		}

		if err := e.extractTaggedObject(oldPath, newPath, oldNorm, newNorm, oldInfo); err != nil {
			return err
		}
		folder, err := e.getFolder(newInfo.Entrypoint())
		if err != nil {
			return wrapSys("rename", newPath, err)
		}
		if err := folder.Files.AddFile(newInfo.Object(), newInfo.Tags()...); err != nil {
			return wrapSys("rename", newPath, err)
		}
		return e.saveFolder(folder)

	default:
		return errnoOf("rename", newPath, syscall.ENOTSUP)
	}
}

// extractTaggedObject moves a tagged object out of its semantic space to a
// plain physical location. Straight out of the root it's a real move and
// the object is fully forgotten; through one or more tags only the last
// tag is dropped and the object is copied rather than moved, since it may
// still be reachable through other tag paths. The caller is responsible
// for registering the destination's own tags, if any.
func (e *Engine) extractTaggedObject(oldPath, newPath, oldNorm, newNorm string, oldInfo pathinfo.Info) error {
	oldDS, newDS := e.physical(oldNorm), e.physical(newNorm)
	folder, err := e.getFolder(oldInfo.Entrypoint())
	if err != nil {
		return wrapSys("rename", newPath, err)
	}

	if len(oldInfo.Tags()) == 0 {
		if err := folder.Files.RemoveFile(oldInfo.Object()); err != nil {
			return wrapSys("rename", newPath, err)
		}
		if err := os.Rename(oldDS, newDS); err != nil {
			return wrapSys("rename", newPath, err)
		}
	} else {
		last := oldInfo.Tags()[len(oldInfo.Tags())-1]
		if err := folder.Files.DiscardTags(oldInfo.Object(), last); err != nil {
			return wrapSys("rename", newPath, err)
		}
		if err := copyObject(oldDS, newDS); err != nil {
			return wrapSys("rename", newPath, err)
		}
	}

	return e.saveFolder(folder)
}
