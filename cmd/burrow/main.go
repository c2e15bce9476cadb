package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burrow",
		Short: "Burrow - search cluster topology planning and node configuration",
		Long: `Burrow plans the node topology of a search cluster from per-role counts
and renders the configuration document and JVM options of every role.

The rendered files are handed to the provisioning layer, which places them
on each node together with the capture-bootstrap routine.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			log.Init(log.Config{Level: log.Level(level), Output: cmd.ErrOrStderr()})
		},
	}
	cmd.SetOut(out)
	cmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newRenderCmd())
	return cmd
}
