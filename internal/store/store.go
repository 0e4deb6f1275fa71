// Package store persists extracted records into sqlite (or a remote libsql
// database) under their composite keys, writing only when content changed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/store/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	report_db_query         = "db.query"
	report_create_if_absent = "store.create-if-absent"
)

// PersistenceError is returned for a record that could not be keyed or written.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persist (%s): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persist %s (%s): %v", e.Key, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func isRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// Open opens a local sqlite file (":memory:" included) or a remote libsql
// database when dsn is a libsql:// or http(s):// url.
func Open(dsn string) (*sql.DB, error) {
	if isRemote(dsn) {
		database, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return database, nil
	}

	if dsn != ":memory:" {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	// sqlite allows a single writer, one connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases on a single connection.
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		database.Close()
		return nil, wrapOpenDB(err)
	}
	return database, nil
}

type Store struct {
	db     *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		db:     db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("store", tel),
	}
}

// CreateIfAbsent creates every missing table. A table created concurrently by
// another process is not an error.
func (s Store) CreateIfAbsent(ctx context.Context) error {
	for _, table := range db.Tables {
		exists, err := s.db.TableExists(ctx, table.Name)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "TableExists", table.Name)
			return fmt.Errorf("check table %s: %w", table.Name, err)
		}
		if exists {
			continue
		}

		s.tel.ReportDebug(report_create_if_absent, table.Name)
		err = s.db.Exec(ctx, table.Create)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			s.tel.ReportBroken(report_create_if_absent, err, table.Name)
			return fmt.Errorf("create table %s: %w", table.Name, err)
		}
	}
	return nil
}
