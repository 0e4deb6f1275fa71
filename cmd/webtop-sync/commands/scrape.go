package commands

import (
	"fmt"
	"log/slog"
	"time"
	"webtop-sync/internal/pipeline"
	"webtop-sync/internal/records"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeKind   *string
	scrapeWindow *string
	scrapeDryRun *bool
	scrapeOutput *string
)

func init() {
	scrapeKind = scrapeCmd.Flags().String("kind", "both", "What to scrape: homework, schedule or both.")
	scrapeWindow = scrapeCmd.Flags().String("window", string(pipeline.WindowHistorical), "Which records to keep: historical (everything on the page) or daily (today only).")
	scrapeDryRun = scrapeCmd.Flags().Bool("dry-run", false, "Print what was extracted instead of writing it.")
	scrapeOutput = scrapeCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml.")
	rootCmd.AddCommand(scrapeCmd)
}

func scrapeRequest(app *app, kind, window string, dryRun bool) (pipeline.Request, error) {
	kinds, err := pipeline.ParseKinds(kind)
	if err != nil {
		return pipeline.Request{}, err
	}
	parsedWindow, err := pipeline.ParseWindow(window)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Kinds:          kinds,
		Window:         parsedWindow,
		DryRun:         dryRun,
		HomeworkSource: pipeline.HomeworkSource(app.cfg.HomeworkSource),
		Lessons:        app.cfg.API.Lessons,
	}, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--kind homework|schedule|both] [--window historical|daily] [--dry-run]",
	Short: "Logs into the portal once and stores the homework and schedule it finds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer app.close()

		req, err := scrapeRequest(app, *scrapeKind, *scrapeWindow, *scrapeDryRun)
		if err != nil {
			return err
		}
		orchestrator, err := app.orchestrator()
		if err != nil {
			return err
		}

		report, err := orchestrator.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		err = render(*scrapeOutput, report, func() { printReport(report) })
		if err != nil {
			return err
		}
		return report.Err()
	},
}

func printReport(report pipeline.Report) {
	t := newTable()
	t.AppendHeader(table.Row{"Kind", "Extracted", "Kept", "Written", "Unchanged", "Errored", "Error"})
	for _, result := range report.Results {
		message := ""
		if result.Err != nil {
			message = result.Err.Error()
		}
		t.AppendRow(table.Row{
			result.Kind,
			result.Extracted,
			result.Kept,
			result.Upsert.Written,
			result.Upsert.Unchanged,
			result.Upsert.Errored,
			message,
		})
	}
	t.SetCaption("finished in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	t.Render()

	if report.DryRun {
		for _, result := range report.Results {
			switch result.Kind {
			case records.KindHomework:
				printHomework(result.Homework)
			case records.KindSchedule:
				printSchedule(result.Schedule)
			}
		}
	}

	switch {
	case report.NoItems():
		fmt.Println("no items found")
	case !report.DryRun:
		slog.Info("scrape finished", "written", humanize.Comma(int64(report.Written())))
	}
}

func printHomework(items []records.Homework) {
	t := newTable()
	t.AppendHeader(table.Row{"Date", "Hour", "Subject", "Teacher", "Homework"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Date, item.Hour, item.Subject, item.Teacher, item.HomeworkText})
	}
	t.Render()
}

func printSchedule(items []records.Schedule) {
	t := newTable()
	t.AppendHeader(table.Row{"Date", "Day", "Class", "Subject", "Teacher", "Description", "Comments"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Date, item.DayName, item.ClassNumber, item.Subject, item.Teacher, item.ClassDescription, item.ClassComments})
	}
	t.Render()
}
