package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"webtop-sync/internal/records"
	"webtop-sync/internal/store/db"
)

const (
	report_upsert = "store.upsert"
)

// UpsertResult counts the outcome of every record of a batch.
type UpsertResult struct {
	Written   int     `json:"written" yaml:"written"`
	Unchanged int     `json:"unchanged" yaml:"unchanged"`
	Errored   int     `json:"errored" yaml:"errored"`
	Errors    []error `json:"-" yaml:"-"`
}

// Err joins the per-record errors, it is nil when nothing failed.
func (r UpsertResult) Err() error {
	return errors.Join(r.Errors...)
}

func (r *UpsertResult) fail(err error) {
	r.Errored++
	r.Errors = append(r.Errors, err)
}

// writeFunc stores one keyed record inside a transaction and reports whether
// a row was inserted or updated.
type writeFunc[T records.Keyed] func(ctx context.Context, tx *db.Queries, item T, key records.Key, now int64) (bool, error)

func upsert[T records.Keyed](ctx context.Context, s Store, kind records.Kind, items []T, write writeFunc[T]) UpsertResult {
	var result UpsertResult
	now := s.time.Now().UnixMilli()

	for _, item := range items {
		key, err := item.Key()
		if err != nil {
			s.tel.ReportWarning(report_upsert, err, string(kind))
			result.fail(&PersistenceError{Op: "key", Err: err})
			continue
		}

		written, err := writeOne(ctx, s, item, key, now, write)
		if err != nil {
			s.tel.ReportBroken(report_upsert, err, string(kind), key.String())
			result.fail(&PersistenceError{Key: key.String(), Op: "write", Err: err})
			continue
		}
		if written {
			result.Written++
		} else {
			result.Unchanged++
		}
	}

	s.tel.ReportCount(fmt.Sprintf("upsert.%s.written", kind), int64(result.Written))
	s.tel.ReportCount(fmt.Sprintf("upsert.%s.errored", kind), int64(result.Errored))
	return result
}

func writeOne[T records.Keyed](ctx context.Context, s Store, item T, key records.Key, now int64, write writeFunc[T]) (bool, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return false, fmt.Errorf("make tx: %w", err)
	}
	defer discard()

	written, err := write(ctx, tx, item, key, now)
	if err != nil {
		return false, err
	}
	if !written {
		return false, nil
	}
	err = commit()
	if err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// UpsertHomework writes every homework record whose content differs from the
// stored row. Failures are counted per record and never abort the batch.
func (s Store) UpsertHomework(ctx context.Context, items []records.Homework) UpsertResult {
	return upsert(ctx, s, records.KindHomework, items, writeHomework)
}

func writeHomework(ctx context.Context, tx *db.Queries, item records.Homework, key records.Key, now int64) (bool, error) {
	row := db.Homework{
		PartitionKey:     key.PartitionKey,
		SortKey:          key.SortKey,
		Hour:             item.Hour,
		Subject:          item.Subject,
		Teacher:          item.Teacher,
		Status:           item.Status,
		Description:      item.Description,
		HomeworkText:     item.HomeworkText,
		ClassDescription: item.ClassDescription,
		Source:           item.Source,
		ExtractedAt:      unixMilli(item.ExtractedAt),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	existing, err := tx.GetHomework(ctx, db.GetHomeworkParams{
		PartitionKey: key.PartitionKey,
		SortKey:      key.SortKey,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return true, tx.InsertHomework(ctx, row)
	}
	if err != nil {
		return false, err
	}
	if records.SameContent(item.Fingerprint(), homeworkFromRow(existing).Fingerprint()) {
		return false, nil
	}
	return true, tx.UpdateHomework(ctx, row)
}

// UpsertSchedule is UpsertHomework for class slots.
func (s Store) UpsertSchedule(ctx context.Context, items []records.Schedule) UpsertResult {
	return upsert(ctx, s, records.KindSchedule, items, writeSchedule)
}

func writeSchedule(ctx context.Context, tx *db.Queries, item records.Schedule, key records.Key, now int64) (bool, error) {
	row := db.Schedule{
		PartitionKey:     key.PartitionKey,
		SortKey:          key.SortKey,
		ClassNumber:      int64(item.ClassNumber),
		Teacher:          item.Teacher,
		Subject:          item.Subject,
		ClassDescription: item.ClassDescription,
		ClassComments:    item.ClassComments,
		DayName:          item.DayName,
		Source:           item.Source,
		ExtractedAt:      unixMilli(item.ExtractedAt),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	existing, err := tx.GetSchedule(ctx, db.GetScheduleParams{
		PartitionKey: key.PartitionKey,
		SortKey:      key.SortKey,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return true, tx.InsertSchedule(ctx, row)
	}
	if err != nil {
		return false, err
	}
	if records.SameContent(item.Fingerprint(), scheduleFromRow(existing).Fingerprint()) {
		return false, nil
	}
	return true, tx.UpdateSchedule(ctx, row)
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
