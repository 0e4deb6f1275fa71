package commands

import (
	"fmt"
	"webtop-sync/internal/records"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <homework|schedule> <date> <sort key>",
	Short: "Deletes one stored record, the sort key is shown by list.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, date, sortKey := records.Kind(args[0]), args[1], args[2]
		err := records.ValidateDate(date)
		if err != nil {
			return err
		}

		app, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.close()

		var deleted bool
		switch kind {
		case records.KindHomework:
			deleted, err = app.store.DeleteHomework(cmd.Context(), date, sortKey)
		case records.KindSchedule:
			deleted, err = app.store.DeleteSchedule(cmd.Context(), date, sortKey)
		default:
			return fmt.Errorf("unknown kind %q, expected homework or schedule", kind)
		}
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("no %s record at %s/%s", kind, date, sortKey)
		}
		fmt.Printf("deleted %s %s/%s\n", kind, date, sortKey)
		return nil
	},
}
