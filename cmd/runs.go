package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent fetch runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		var rows [][]string
		for _, run := range runs {
			finished := "-"
			if !run.FinishedAt.IsZero() {
				finished = run.FinishedAt.Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{
				run.ID,
				run.Mode,
				strconv.Itoa(run.URLs),
				strconv.Itoa(run.Report.Fetched),
				strconv.Itoa(run.Report.Failed),
				run.StartedAt.Format("2006-01-02 15:04:05"),
				finished,
			})
		}

		fmt.Println(renderTable(
			[]string{"Run", "Mode", "URLs", "Fetched", "Failed", "Started", "Finished"},
			rows, 2, 3, 4))
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
