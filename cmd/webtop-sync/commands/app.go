package commands

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/pipeline"
	"webtop-sync/internal/scrapers/webtop"
	"webtop-sync/internal/snapshots"
	"webtop-sync/internal/store"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
)

// app holds everything a command needs, open it with openApp and release it
// with close.
type app struct {
	cfg     Config
	clock   chrono.StandardTime
	tel     telemetry.API
	db      *sql.DB
	store   store.Store
	cache   *badger.DB
	archive *snapshots.Archive
}

func openApp(cmd *cobra.Command, withArchive bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	tel := telemetry.SlogAPI{}

	database, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	s := store.NewStore(database, clock, tel)
	err = s.CreateIfAbsent(cmd.Context())
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		clock: clock,
		tel:   tel,
		db:    database,
		store: s,
	}

	if withArchive && !cfg.Snapshots.Disabled {
		a.cache, err = snapshots.Open(cfg.Snapshots.Dir)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open snapshots: %w", err)
		}
		archive := snapshots.NewArchive(
			a.cache,
			time.Duration(cfg.Snapshots.LifetimeHours)*time.Hour,
			clock,
			tel,
		)
		a.archive = &archive
	}
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		err := a.cache.Close()
		if err != nil {
			slog.Warn("failed to close snapshots", "err", err)
		}
	}
	err := a.db.Close()
	if err != nil {
		slog.Warn("failed to close db", "err", err)
	}
}

func (a *app) orchestrator() (pipeline.Orchestrator, error) {
	options := a.cfg.webtopOptions()
	chrome := browser.NewChrome(a.cfg.Browser, a.tel)

	var archive webtop.PageArchive
	if a.archive != nil {
		archive = a.archive
	}

	var api pipeline.LessonsAPI
	if pipeline.HomeworkSource(a.cfg.HomeworkSource) == pipeline.SourceAPI {
		client, err := webtop.NewAPIClient(a.cfg.API.BaseURL, a.clock, a.tel)
		if err != nil {
			return pipeline.Orchestrator{}, err
		}
		api = client
	}

	return pipeline.NewOrchestrator(
		webtop.NewManager(chrome, options, a.clock, a.tel),
		webtop.NewExtractor(options, archive, a.clock, a.tel),
		api,
		a.store,
		webtop.Credentials{
			Username: a.cfg.Credentials.Username,
			Password: a.cfg.Credentials.Password,
		},
		a.clock,
		a.tel,
	), nil
}
