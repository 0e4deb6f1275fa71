package commands

import (
	"fmt"
	"log/slog"
	"time"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Runs the scrape jobs of the config on their cron schedules until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer app.close()

		if len(app.cfg.Daemon.Jobs) == 0 {
			return fmt.Errorf("no daemon jobs configured")
		}
		orchestrator, err := app.orchestrator()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if app.cfg.Daemon.PerfStatsSeconds > 0 {
			telemetry.InstrumentPerfStats(ctx, time.Duration(app.cfg.Daemon.PerfStatsSeconds)*time.Second)
		}

		cron := chrono.NewStandardCron(app.clock, app.tel)
		for _, job := range app.cfg.Daemon.Jobs {
			req, err := scrapeRequest(app, job.Kind, job.Window, false)
			if err != nil {
				<-cron.Stop()
				return fmt.Errorf("daemon job %q: %w", job.Cron, err)
			}
			job := job
			err = cron.Cron(job.Cron, func() {
				slog.Info("running scheduled scrape", "cron", job.Cron, "kind", job.Kind, "window", job.Window)
				report, err := orchestrator.Run(ctx, req)
				if err != nil {
					slog.Error("scheduled scrape failed", "cron", job.Cron, "err", err)
					return
				}
				if err := report.Err(); err != nil {
					slog.Warn("scheduled scrape finished with errors", "cron", job.Cron, "err", err)
				}
				slog.Info(
					"scheduled scrape finished",
					"cron", job.Cron,
					"written", report.Written(),
					"no_items", report.NoItems(),
				)
			})
			if err != nil {
				<-cron.Stop()
				return fmt.Errorf("daemon job %q: %w", job.Cron, err)
			}
		}

		slog.Info("daemon started", "jobs", len(app.cfg.Daemon.Jobs), "timezone", app.clock.Location().String())
		<-ctx.Done()
		slog.Info("stopping daemon, waiting for running jobs")
		<-cron.Stop()
		return nil
	},
}
