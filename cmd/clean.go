package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieleds/GFS/internal/mountregistry"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale semanticfs mount sidecars (process has died)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := registryDir
		if dir == "" {
			dir = mountregistry.DefaultDir()
		}

		mounts, err := mountregistry.List(dir)
		if err != nil {
			return err
		}

		cleaned := 0
		for _, m := range mounts {
			if mountregistry.IsRunning(m.PID) {
				continue
			}
			fmt.Printf("Removing stale mount: %s (PID %d was not running)\n", filepath.Base(m.MountPoint), m.PID)
			if err := mountregistry.Remove(dir, m.MountPoint); err != nil {
				fmt.Printf("Warning: failed to remove %s: %v\n", m.MountPoint, err)
				continue
			}
			cleaned++
		}

		if cleaned == 0 {
			fmt.Println("No stale mounts found.")
		} else {
			fmt.Printf("Cleaned %d stale mount(s).\n", cleaned)
		}
		return nil
	},
}
