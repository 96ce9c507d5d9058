package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/danieleds/GFS/internal/config"
	"github.com/danieleds/GFS/internal/core"
	"github.com/danieleds/GFS/internal/dispatcher"
	"github.com/danieleds/GFS/internal/mountregistry"
	"github.com/danieleds/GFS/internal/nfsbridge"
	"github.com/danieleds/GFS/internal/nfsserver"
)

var (
	datastorePath string
	backend       string
	readOnly      bool
	folderCache   int
	verboseOps    bool
)

func init() {
	defaultBackend := "fuse"
	if runtime.GOOS == "darwin" {
		defaultBackend = "nfs"
	}

	mountCmd.Flags().StringVarP(&datastorePath, "datastore", "d", "", "Path to the real directory objects are stored under")
	mountCmd.Flags().StringVar(&backend, "backend", "", "Mount backend: fuse or nfs (default "+defaultBackend+")")
	mountCmd.Flags().BoolVar(&readOnly, "read-only", false, "Mount read-only")
	mountCmd.Flags().IntVar(&folderCache, "folder-cache", 0, "Resident SemanticFolder cache size (0 = 1048576, effectively unbounded)")
	mountCmd.Flags().BoolVarP(&verboseOps, "verbose", "v", false, "Log every open/create with its flags")
}

var mountCmd = &cobra.Command{
	Use:   "mount [mountpoint]",
	Short: "Mount a semantic overlay at mountpoint",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mountPoint string
		if len(args) == 1 {
			mountPoint = args[0]
		}

		if profilePath != "" {
			p, err := config.Load(profilePath)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			if mountPoint == "" {
				mountPoint = p.Mountpoint
			}
			if datastorePath == "" {
				datastorePath = p.Datastore
			}
			if !cmd.Flags().Changed("backend") {
				backend = p.Backend
			}
			if !cmd.Flags().Changed("read-only") {
				readOnly = p.ReadOnly
			}
		}

		if mountPoint == "" {
			return fmt.Errorf("a mountpoint argument (or a --profile naming one) is required")
		}
		if datastorePath == "" {
			return fmt.Errorf("--datastore (or a --profile naming one) is required")
		}
		if backend == "" {
			backend = "fuse"
			if runtime.GOOS == "darwin" {
				backend = "nfs"
			}
		}

		if err := os.MkdirAll(mountPoint, 0o755); err != nil {
			return fmt.Errorf("create mount point %s: %w", mountPoint, err)
		}
		if err := os.MkdirAll(datastorePath, 0o755); err != nil {
			return fmt.Errorf("create datastore %s: %w", datastorePath, err)
		}

		engine, err := core.New(datastorePath, folderCache)
		if err != nil {
			return fmt.Errorf("init engine: %w", err)
		}

		dir := registryDir
		if dir == "" {
			dir = mountregistry.DefaultDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir %s: %w", dir, err)
		}
		entry := &mountregistry.Entry{
			PID:        os.Getpid(),
			Datastore:  datastorePath,
			MountPoint: mountPoint,
			Backend:    backend,
			ReadOnly:   readOnly,
			Timestamp:  time.Now(),
		}
		if err := mountregistry.Save(dir, entry); err != nil {
			log.Printf("semanticfs: warning: failed to save mount metadata: %v", err)
		}
		defer func() { _ = mountregistry.Remove(dir, mountPoint) }()

		switch backend {
		case "fuse":
			return mountFUSE(engine, mountPoint, readOnly)
		case "nfs":
			return mountNFS(engine, mountPoint, readOnly)
		default:
			return fmt.Errorf("unknown backend %q (use fuse or nfs)", backend)
		}
	},
}

func mountFUSE(engine *core.Engine, mountPoint string, readOnly bool) error {
	fs := dispatcher.New(engine)
	fs.Verbose = verboseOps
	host := fuse.NewFileSystemHost(fs)
	host.SetCapReaddirPlus(true)

	fmt.Printf("semanticfs: mounting at %s via FUSE\n", mountPoint)

	opts := []string{
		"-o", fmt.Sprintf("uid=%d", os.Getuid()),
		"-o", fmt.Sprintf("gid=%d", os.Getgid()),
		"-o", "fsname=semanticfs",
		"-o", "subtype=semanticfs",
		"-o", "entry_timeout=0.0",
		"-o", "attr_timeout=0.0",
		"-o", "negative_timeout=0.0",
		"-o", "direct_io",
	}
	if runtime.GOOS == "darwin" {
		opts = append(opts, "-o", "nobrowse", "-o", "noattrcache")
	}
	if readOnly {
		opts = append([]string{"-o", "ro"}, opts...)
	}

	if !host.Mount(mountPoint, opts) {
		return fmt.Errorf("mount failed")
	}
	return nil
}

func mountNFS(engine *core.Engine, mountPoint string, readOnly bool) error {
	bridge := nfsbridge.New(engine)

	srv, err := nfsserver.NewServer(bridge)
	if err != nil {
		return fmt.Errorf("start nfs server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	fmt.Printf("semanticfs: mounting at %s (NFS on localhost:%d)\n", mountPoint, srv.Port())
	if err := nfsserver.Mount(srv.Port(), mountPoint, !readOnly); err != nil {
		return err
	}
	fmt.Println("Mounted. Press Ctrl-C to unmount.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Printf("\nsemanticfs: unmounting %s...\n", mountPoint)
	if err := nfsserver.Unmount(mountPoint); err != nil {
		fmt.Printf("Warning: unmount failed: %v\n", err)
		fmt.Printf("Run manually: sudo umount %s\n", mountPoint)
	}
	return nil
}
