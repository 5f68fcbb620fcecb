package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cookdex/cookdex/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the recipe cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics by status",
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

		counts := make(map[model.Status]int)
		for _, rec := range records {
			counts[rec.Status]++
		}

		var rows [][]string
		for s := model.StatusUnusable; s <= model.StatusComplete; s++ {
			rows = append(rows, []string{s.String(), strconv.Itoa(counts[s])})
		}
		rows = append(rows, []string{"total", strconv.Itoa(len(records))})

		fmt.Println(renderTable([]string{"Status", "Recipes"}, rows, 1))
		return nil
	},
}

var cacheEraseForce bool

var cacheEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Delete every cached recipe and run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !cacheEraseForce {
			fmt.Fprint(os.Stderr, "Erase the entire cache? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return nil
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.EraseAll(ctx); err != nil {
			return eris.Wrap(err, "erase cache")
		}
		fmt.Fprintln(os.Stderr, "Cache erased.")
		return nil
	},
}

func init() {
	cacheEraseCmd.Flags().BoolVarP(&cacheEraseForce, "force", "f", false, "skip confirmation")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheEraseCmd)
	rootCmd.AddCommand(cacheCmd)
}
