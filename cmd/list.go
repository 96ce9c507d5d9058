package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/danieleds/GFS/internal/mountregistry"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit the mount list as JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active semanticfs mounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := registryDir
		if dir == "" {
			dir = mountregistry.DefaultDir()
		}

		mounts, err := mountregistry.List(dir)
		if err != nil {
			return err
		}

		if listJSON {
			fmt.Println(oj.JSON(mounts, 2))
			return nil
		}

		if len(mounts) == 0 {
			fmt.Println("No active semanticfs mounts found.")
			return nil
		}

		fmt.Printf("%-20s %-10s %-8s %-30s %-10s %s\n", "MOUNT", "PID", "BACKEND", "DATASTORE", "AGE", "STATUS")
		if isTerminal() {
			fmt.Println(strings.Repeat("-", 100))
		}
		for _, m := range mounts {
			status := "running"
			if !mountregistry.IsRunning(m.PID) {
				status = "stale"
			}
			fmt.Printf("%-20s %-10d %-8s %-30s %-10s %s\n",
				filepath.Base(m.MountPoint), m.PID, m.Backend, m.Datastore,
				humanize.Time(m.Timestamp), status)
		}
		return nil
	},
}
