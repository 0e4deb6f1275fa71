package commands

import (
	"fmt"
	"time"
	"webtop-sync/internal/records"
	"webtop-sync/internal/scrapers/webtop"
	"webtop-sync/internal/snapshots"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	replayKind  *string
	replayDate  *string
	replayStore *bool
)

func init() {
	replayKind = replayCmd.Flags().String("kind", string(records.KindHomework), "Which archived pages to replay: homework or schedule.")
	replayDate = replayCmd.Flags().String("date", "", "Only replay pages captured on this day.")
	replayStore = replayCmd.Flags().Bool("store", false, "Upsert the replayed records instead of only printing them.")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay [--kind homework|schedule] [--date <day>] [--store]",
	Short: "Runs extraction again over archived pages, without logging into the portal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer app.close()
		if app.archive == nil {
			return fmt.Errorf("snapshots are disabled in the config")
		}

		kind := records.Kind(*replayKind)
		if kind != records.KindHomework && kind != records.KindSchedule {
			return fmt.Errorf("unknown kind %q, expected homework or schedule", *replayKind)
		}
		day := ""
		if *replayDate != "" {
			day, err = parseDay(*replayDate, app.clock.Now())
			if err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		pages, err := app.archive.List(ctx, kind)
		if err != nil {
			return err
		}

		summary := newTable()
		summary.AppendHeader(table.Row{"Captured", "URL", "Records", "Written", "Errored"})
		for _, page := range pages {
			if day != "" && page.Date != day {
				continue
			}
			count, written, errored, err := replayPage(cmd, app, page)
			if err != nil {
				return fmt.Errorf("replay %s: %w", page.URL, err)
			}
			summary.AppendRow(table.Row{page.Date, page.URL, count, written, errored})
		}
		summary.Render()
		return nil
	},
}

func replayPage(cmd *cobra.Command, app *app, page snapshots.Page) (count, written, errored int, err error) {
	ctx := cmd.Context()
	savedAt := time.Unix(page.SavedAt, 0).In(app.clock.Location())

	switch page.Kind {
	case records.KindHomework:
		items, err := webtop.ParseHomework(ctx, string(page.HTML), page.URL, savedAt, app.clock, app.tel)
		if err != nil {
			return 0, 0, 0, err
		}
		if !*replayStore {
			printHomework(items)
			return len(items), 0, 0, nil
		}
		result := app.store.UpsertHomework(ctx, items)
		return len(items), result.Written, result.Errored, nil
	case records.KindSchedule:
		items, err := webtop.ParseSchedule(ctx, string(page.HTML), page.URL, savedAt, app.clock, app.tel)
		if err != nil {
			return 0, 0, 0, err
		}
		if !*replayStore {
			printSchedule(items)
			return len(items), 0, 0, nil
		}
		result := app.store.UpsertSchedule(ctx, items)
		return len(items), result.Written, result.Errored, nil
	}
	return 0, 0, 0, fmt.Errorf("unknown kind %q", page.Kind)
}
