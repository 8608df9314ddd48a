package cmd

import (
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"strings"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <text...>",
	Short: "Full-text search over method names and descriptions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, idx, err := loadIndex()
		if err != nil {
			return err
		}
		searcher, err := docs.NewSearcher(cmd.Context(), idx)
		if err != nil {
			return err
		}
		defer func() {
			_ = searcher.Close()
		}()

		query := strings.Join(args, " ")
		hits, err := searcher.Search(cmd.Context(), query, searchLimit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			return fmt.Errorf("no results found for '%s'", query)
		}

		f := formatter()
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Method", "Score", "Description", "URL"})
		for _, h := range hits {
			var desc string
			if h.Entry.Method != nil {
				desc = h.Entry.Method.ShortDescription
			}
			t.AppendRow(
				table.Row{
					h.Entry.FormattedName,
					fmt.Sprintf("%.3f", h.Score),
					desc,
					f.URL(h.Entry),
				},
			)
		}
		t.Render()
		return nil
	},
}

//nolint:gochecknoinits
func init() {
	searchCmd.Flags().IntVar(
		&searchLimit,
		"limit",
		docs.DefaultSearchLimit,
		"Maximum number of results",
	)
	rootCmd.AddCommand(searchCmd)
}
