package db

import (
	"context"
	"database/sql"
)

const scheduleColumns = `partition_key, sort_key, class_number, teacher, subject, class_description, class_comments, day_name, source, extracted_at, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (Schedule, error) {
	var i Schedule
	err := row.Scan(
		&i.PartitionKey,
		&i.SortKey,
		&i.ClassNumber,
		&i.Teacher,
		&i.Subject,
		&i.ClassDescription,
		&i.ClassComments,
		&i.DayName,
		&i.Source,
		&i.ExtractedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectSchedule(rows *sql.Rows) ([]Schedule, error) {
	defer rows.Close()
	var items []Schedule
	for rows.Next() {
		i, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSchedule = `-- name: GetSchedule :one
select ` + scheduleColumns + ` from schedule
where partition_key = ? and sort_key = ?
`

type GetScheduleParams struct {
	PartitionKey string
	SortKey      string
}

func (q *Queries) GetSchedule(ctx context.Context, arg GetScheduleParams) (Schedule, error) {
	row := q.db.QueryRowContext(ctx, getSchedule, arg.PartitionKey, arg.SortKey)
	return scanSchedule(row)
}

const insertSchedule = `-- name: InsertSchedule :exec
insert into schedule (` + scheduleColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertSchedule(ctx context.Context, arg Schedule) error {
	_, err := q.db.ExecContext(ctx, insertSchedule,
		arg.PartitionKey,
		arg.SortKey,
		arg.ClassNumber,
		arg.Teacher,
		arg.Subject,
		arg.ClassDescription,
		arg.ClassComments,
		arg.DayName,
		arg.Source,
		arg.ExtractedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateSchedule = `-- name: UpdateSchedule :exec
update schedule set
    class_number = ?,
    teacher = ?,
    subject = ?,
    class_description = ?,
    class_comments = ?,
    day_name = ?,
    source = ?,
    extracted_at = ?,
    updated_at = ?
where partition_key = ? and sort_key = ?
`

// UpdateSchedule rewrites the content of a row, created_at is left as is.
func (q *Queries) UpdateSchedule(ctx context.Context, arg Schedule) error {
	_, err := q.db.ExecContext(ctx, updateSchedule,
		arg.ClassNumber,
		arg.Teacher,
		arg.Subject,
		arg.ClassDescription,
		arg.ClassComments,
		arg.DayName,
		arg.Source,
		arg.ExtractedAt,
		arg.UpdatedAt,
		arg.PartitionKey,
		arg.SortKey,
	)
	return err
}

const listScheduleInRange = `-- name: ListScheduleInRange :many
select ` + scheduleColumns + ` from schedule
where partition_key >= ? and partition_key <= ?
order by partition_key, sort_key
`

type ListScheduleInRangeParams struct {
	From string
	To   string
}

func (q *Queries) ListScheduleInRange(ctx context.Context, arg ListScheduleInRangeParams) ([]Schedule, error) {
	rows, err := q.db.QueryContext(ctx, listScheduleInRange, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collectSchedule(rows)
}

const listScheduleFrom = `-- name: ListScheduleFrom :many
select ` + scheduleColumns + ` from schedule
where partition_key >= ?
order by partition_key, sort_key
`

func (q *Queries) ListScheduleFrom(ctx context.Context, from string) ([]Schedule, error) {
	rows, err := q.db.QueryContext(ctx, listScheduleFrom, from)
	if err != nil {
		return nil, err
	}
	return collectSchedule(rows)
}

const deleteSchedule = `-- name: DeleteSchedule :execrows
delete from schedule where partition_key = ? and sort_key = ?
`

type DeleteScheduleParams struct {
	PartitionKey string
	SortKey      string
}

func (q *Queries) DeleteSchedule(ctx context.Context, arg DeleteScheduleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSchedule, arg.PartitionKey, arg.SortKey)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const scheduleStats = `-- name: ScheduleStats :one
select count(*), min(partition_key), max(partition_key) from schedule
`

func (q *Queries) ScheduleStats(ctx context.Context) (TableStats, error) {
	row := q.db.QueryRowContext(ctx, scheduleStats)
	var i TableStats
	err := row.Scan(&i.Count, &i.FirstDay, &i.LastDay)
	return i, err
}
