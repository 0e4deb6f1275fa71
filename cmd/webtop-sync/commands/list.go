package commands

import (
	"fmt"
	"time"
	"webtop-sync/internal/records"
	"webtop-sync/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	listKind     *string
	listDate     *string
	listToday    *bool
	listFrom     *string
	listTo       *string
	listUpcoming *bool
	listSubject  *string
	listLimit    *int
	listOutput   *string
)

func init() {
	listKind = listCmd.Flags().String("kind", string(records.KindHomework), "What to list: homework or schedule.")
	listDate = listCmd.Flags().String("date", "", "A single day, either YYYY-MM-DD or natural language like \"tomorrow\" or \"next monday\".")
	listToday = listCmd.Flags().Bool("today", false, "List today's records.")
	listFrom = listCmd.Flags().String("from", "", "Start of a date range (inclusive).")
	listTo = listCmd.Flags().String("to", "", "End of a date range (inclusive).")
	listUpcoming = listCmd.Flags().Bool("upcoming", false, "List records from today onward.")
	listSubject = listCmd.Flags().String("subject", "", "Only list subjects matching this, small typos are tolerated.")
	listLimit = listCmd.Flags().Int("limit", 20, "Maximum number of upcoming records.")
	listOutput = listCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml.")
	rootCmd.AddCommand(listCmd)
}

// parseDay resolves a YYYY-MM-DD date or a natural language expression
// relative to now.
func parseDay(text string, now time.Time) (string, error) {
	if records.ValidateDate(text) == nil {
		return text, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(text, now)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("could not understand date %q", text)
	}
	return result.Time.Format(time.DateOnly), nil
}

// listRange turns the date flags into an inclusive range, upcoming is true
// when the upcoming query should be used instead.
func listRange(now time.Time) (from, to string, upcoming bool, err error) {
	switch {
	case *listUpcoming:
		return "", "", true, nil
	case *listToday:
		today := now.Format(time.DateOnly)
		return today, today, false, nil
	case *listDate != "":
		day, err := parseDay(*listDate, now)
		return day, day, false, err
	case *listFrom != "" || *listTo != "":
		from, to = now.Format(time.DateOnly), now.Format(time.DateOnly)
		if *listFrom != "" {
			from, err = parseDay(*listFrom, now)
			if err != nil {
				return "", "", false, err
			}
		}
		if *listTo != "" {
			to, err = parseDay(*listTo, now)
			if err != nil {
				return "", "", false, err
			}
		}
		return from, to, false, nil
	}
	return "", "", true, nil
}

var listCmd = &cobra.Command{
	Use:   "list [--kind homework|schedule] [--date <day> | --today | --from <day> --to <day> | --upcoming] [--subject <name>]",
	Short: "Lists stored homework or schedule records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.close()

		from, to, upcoming, err := listRange(app.clock.Now())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		switch records.Kind(*listKind) {
		case records.KindHomework:
			var items []store.StoredHomework
			if upcoming {
				items, err = app.store.UpcomingHomework(ctx, *listSubject, *listLimit)
			} else {
				items, err = app.store.HomeworkInRange(ctx, from, to, *listSubject)
			}
			if err != nil {
				return err
			}
			return render(*listOutput, items, func() { printStoredHomework(items) })
		case records.KindSchedule:
			var items []store.StoredSchedule
			if upcoming {
				items, err = app.store.UpcomingSchedule(ctx, *listSubject, *listLimit)
			} else {
				items, err = app.store.ScheduleInRange(ctx, from, to, *listSubject)
			}
			if err != nil {
				return err
			}
			return render(*listOutput, items, func() { printStoredSchedule(items) })
		}
		return fmt.Errorf("unknown kind %q, expected homework or schedule", *listKind)
	},
}

func printStoredHomework(items []store.StoredHomework) {
	if len(items) == 0 {
		fmt.Println("no items found")
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"Date", "Key", "Subject", "Teacher", "Homework", "Updated"})
	for _, item := range items {
		t.AppendRow(table.Row{
			item.Date,
			item.SortKey,
			item.Subject,
			item.Teacher,
			item.HomeworkText,
			humanize.Time(item.UpdatedAt),
		})
	}
	t.Render()
}

func printStoredSchedule(items []store.StoredSchedule) {
	if len(items) == 0 {
		fmt.Println("no items found")
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"Date", "Day", "Class", "Subject", "Teacher", "Description", "Comments", "Updated"})
	for _, item := range items {
		t.AppendRow(table.Row{
			item.Date,
			item.DayName,
			item.ClassNumber,
			item.Subject,
			item.Teacher,
			item.ClassDescription,
			item.ClassComments,
			humanize.Time(item.UpdatedAt),
		})
	}
	t.Render()
}
