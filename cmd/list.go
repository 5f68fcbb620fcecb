package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cookdex/cookdex/internal/model"
)

var listStatus int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached recipes",
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

		records, err := st.All(ctx)
		if err != nil {
			return err
		}

		var rows [][]string
		for _, rec := range records {
			if listStatus >= 0 && int(rec.Status) != listStatus {
				continue
			}
			title := rec.Title
			if !model.Present(title) {
				title = rec.URL
			}
			rows = append(rows, []string{
				rec.ID[:12],
				title,
				rec.Host,
				rec.Status.String(),
				strconv.Itoa(len(rec.Ingredients)),
				rec.LastFetched.Format("2006-01-02 15:04"),
			})
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No cached recipes.")
			return nil
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })

		fmt.Println(renderTable(
			[]string{"ID", "Title", "Host", "Status", "Ingredients", "Fetched"},
			rows, 4))
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listStatus, "status", -1, "only show recipes with this status (0-3)")
	rootCmd.AddCommand(listCmd)
}
