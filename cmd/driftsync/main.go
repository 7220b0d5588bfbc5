package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var verbose bool

	root := &cobra.Command{
		Use:           "driftsync",
		Short:         "Durable one-way file synchronization",
		Long:          "driftsync mirrors a source tree to a destination tree, journaling every\nreplicated operation in a crash-consistent transaction log and verifying\neach copy before declaring it done.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(logCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}
