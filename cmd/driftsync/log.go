package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/txlog"
)

func logCmd() *cobra.Command {
	var (
		dir        string
		showAll    bool
		showFailed bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the transaction log",
		Long:  "Replays the current transaction log and prints each id's authoritative\nstatus. By default only unfinished (pending or in-progress) transactions\nare shown.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := txlog.New(dir, txlog.Options{})
			if err := l.Open(); err != nil {
				return err
			}
			defer l.Close()

			var recs []txlog.Record
			switch {
			case showAll:
				recs = l.Records()
			case showFailed:
				recs = l.ByStatus(txlog.StatusFailed)
			default:
				recs = l.Pending()
			}

			for _, r := range recs {
				line := fmt.Sprintf("%s  %-11s  %-15s  %s -> %s",
					r.Time().Format("2006-01-02 15:04:05"), r.Status, r.Operation, r.SourcePath, r.DestPath)
				if r.ErrorMessage != "" {
					line += "  (" + r.ErrorMessage + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions (log: %s)\n", len(recs), l.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "/var/log/file_sync", "transaction log directory")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "show every transaction")
	cmd.Flags().BoolVar(&showFailed, "failed", false, "show only failed transactions")

	return cmd
}
