package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieleds/GFS/internal/mountregistry"
	"github.com/danieleds/GFS/internal/nfsserver"
)

var unmountCmd = &cobra.Command{
	Use:   "unmount <mountpoint-or-name>",
	Short: "Unmount and stop a semanticfs mount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := registryDir
		if dir == "" {
			dir = mountregistry.DefaultDir()
		}

		meta, err := mountregistry.Find(dir, args[0])
		if err != nil {
			return fmt.Errorf("scan mount registry: %w", err)
		}
		if meta == nil {
			return fmt.Errorf("no registered mount matches %q (try `semanticfs list`)", args[0])
		}

		if meta.Backend == "nfs" {
			if err := nfsserver.Unmount(meta.MountPoint); err != nil {
				fmt.Printf("Warning: nfs unmount failed: %v\n", err)
			}
		}

		if mountregistry.IsRunning(meta.PID) {
			process, err := os.FindProcess(meta.PID)
			if err != nil {
				return fmt.Errorf("find process %d: %w", meta.PID, err)
			}
			fmt.Printf("Stopping semanticfs process (PID %d)...\n", meta.PID)
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("send SIGTERM: %w", err)
			}
			time.Sleep(2 * time.Second)
			if mountregistry.IsRunning(meta.PID) {
				fmt.Println("Process still running, sending SIGKILL...")
				_ = process.Signal(syscall.SIGKILL)
			}
		}

		if err := mountregistry.Remove(dir, meta.MountPoint); err != nil {
			fmt.Printf("Warning: failed to remove mount metadata: %v\n", err)
		}
		fmt.Println("Mount stopped successfully.")
		return nil
	},
}
