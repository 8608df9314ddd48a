package cmd

import (
	"github.com/LIKO-12/Discord/docs"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"strings"
)

var aliasesCmd = &cobra.Command{
	Use:   "aliases [filter]",
	Short: "Lists the names methods can be looked up by",
	Long: "Lists every alias in the index, in lookup order, along with the " +
		"method it resolves to. If filter is given, only aliases containing it are listed.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, idx, err := loadIndex()
		if err != nil {
			return err
		}
		var filter string
		if len(args) > 0 {
			filter = strings.ToLower(args[0])
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Alias", "Method", "Usages"})

		count := 0
		idx.Each(
			func(alias string, e *docs.IndexEntry) bool {
				if filter != "" && !strings.Contains(alias, filter) {
					return true
				}
				usages := 1
				if e.Method != nil {
					usages = e.Method.UsageCount()
				}
				t.AppendRow(table.Row{alias, e.FormattedName, usages})
				count++
				return true
			},
		)
		t.AppendFooter(table.Row{"", "Total", count})
		t.Render()
		return nil
	},
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(aliasesCmd)
}
