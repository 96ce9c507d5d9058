// Package mountregistry tracks active mounts via JSON sidecar files in one
// registry directory, the same way the teacher's cmd package tracks
// agent-mode mounts: one <name>.meta.json file per mount, scanned to
// implement list/unmount/clean. Mount points can live anywhere on the
// system, so the sidecar takes its name from the mount point's path rather
// than sitting beside it.
package mountregistry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ohler55/ojg/oj"
)

// Entry describes one active mount.
type Entry struct {
	PID        int       `json:"pid"`
	Datastore  string    `json:"datastore"`
	MountPoint string    `json:"mount_point"`
	Backend    string    `json:"backend"`
	ReadOnly   bool      `json:"read_only"`
	Timestamp  time.Time `json:"timestamp"`
}

// sidecarPath returns the sidecar file for a mount point inside dir. The
// mount point's cleaned path is flattened into the filename ("%" and "-"
// percent-escaped, then every separator turned into "-") so two different
// mount-point paths never share a sidecar.
func sidecarPath(dir, mountPoint string) string {
	sep := string(filepath.Separator)
	flat := strings.NewReplacer("%", "%25", "-", "%2D", sep, "-").Replace(filepath.Clean(mountPoint))
	return filepath.Join(dir, flat+".meta.json")
}

// Save writes e to its sidecar file inside dir.
func Save(dir string, e *Entry) error {
	data, err := oj.Marshal(e)
	if err != nil {
		return fmt.Errorf("mountregistry: marshal: %w", err)
	}
	return os.WriteFile(sidecarPath(dir, e.MountPoint), data, 0o644)
}

// Load reads the sidecar entry for mountPoint out of dir.
func Load(dir, mountPoint string) (*Entry, error) {
	data, err := os.ReadFile(sidecarPath(dir, mountPoint))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := oj.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("mountregistry: unmarshal %s: %w", mountPoint, err)
	}
	return &e, nil
}

// Remove deletes mountPoint's sidecar file from dir, if present.
func Remove(dir, mountPoint string) error {
	err := os.Remove(sidecarPath(dir, mountPoint))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List scans dir for sidecar files and returns every entry it can parse,
// skipping ones it can't (a half-written sidecar from a racing mount,
// say) rather than failing the whole listing.
func List(dir string) ([]*Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var mounts []*Entry
	for _, de := range entries {
		name := de.Name()
		if !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var e Entry
		if err := oj.Unmarshal(data, &e); err != nil {
			continue
		}
		mounts = append(mounts, &e)
	}
	return mounts, nil
}

// Find resolves nameOrPath against dir's registered mounts: an exact mount
// point match wins, then a basename match. Returns nil if nothing matches.
func Find(dir, nameOrPath string) (*Entry, error) {
	mounts, err := List(dir)
	if err != nil {
		return nil, err
	}
	for _, m := range mounts {
		if m.MountPoint == nameOrPath {
			return m, nil
		}
	}
	for _, m := range mounts {
		if filepath.Base(m.MountPoint) == nameOrPath {
			return m, nil
		}
	}
	return nil, nil
}

// IsRunning reports whether the process owning a mount is still alive.
func IsRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// DefaultDir returns the directory mounts register themselves under absent
// an explicit --registry-dir override.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "semanticfs")
}
