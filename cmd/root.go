// Package cmd implements the semanticfs command-line tool: mount, list,
// unmount, clean and version subcommands, modeled on the teacher's cobra
// wiring (one var block of shared flags, one *cobra.Command per file, a
// package-level Execute() the root main calls).
package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	profilePath string
	registryDir string
)

// isTerminal reports whether stdout is an interactive terminal, the same
// check the teacher's --quiet handling was reaching for but never actually
// used go-isatty for; table output here suppresses box-drawing flourish
// when piped.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var rootCmd = &cobra.Command{
	Use:     "semanticfs",
	Short:   "Tag-based semantic filesystem overlay",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "HCL mount profile (overridden by explicit flags)")
	rootCmd.PersistentFlags().StringVar(&registryDir, "registry-dir", "", "Directory mount sidecars are tracked in (default: $TMPDIR/semanticfs)")

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("semanticfs version %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
