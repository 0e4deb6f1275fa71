package commands

import (
	"webtop-sync/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsOutput *string

func init() {
	statsOutput = statsCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml.")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows how many records are stored and which days they cover.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.close()

		stats, err := app.store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return render(*statsOutput, stats, func() { printStats(stats) })
	},
}

func printStats(stats []store.TableStats) {
	t := newTable()
	t.AppendHeader(table.Row{"Table", "Records", "First day", "Last day"})
	for _, s := range stats {
		t.AppendRow(table.Row{s.Table, humanize.Comma(s.Count), s.FirstDay, s.LastDay})
	}
	t.Render()
}
