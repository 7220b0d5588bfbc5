package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/verify"
)

func checkCmd() *cobra.Command {
	var (
		workers int
		method  string
	)

	cmd := &cobra.Command{
		Use:   "check SOURCE DEST",
		Short: "Run a one-shot consistency check between two trees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := verify.FastHash
			if method != "" {
				var err error
				m, err = verify.MethodFromString(method)
				if err != nil {
					return err
				}
			}
			if workers <= 0 {
				workers = runtime.NumCPU()
			}

			results := verify.New().Directory(args[0], args[1], m, true, workers)

			total := 0
			mismatches := 0
			for _, pr := range results {
				if pr.Rel == "" && !pr.Result.Matches {
					return fmt.Errorf("%s", pr.Result.ErrorMessage)
				}
				total++
				if pr.Result.Matches {
					continue
				}
				mismatches++
				fmt.Fprintf(cmd.OutOrStdout(), "MISMATCH %s: %s\n", pr.Rel, pr.Result.ErrorMessage)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Files=%d, Mismatches=%d\n", total, mismatches)
			if mismatches > 0 {
				return fmt.Errorf("%d files differ", mismatches)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "verification workers (default: CPU count)")
	cmd.Flags().StringVar(&method, "verify-method", "", "verification method")

	return cmd
}
