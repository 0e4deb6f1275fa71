package db

import (
	"context"
	"database/sql"
)

const homeworkColumns = `partition_key, sort_key, hour, subject, teacher, status, description, homework_text, class_description, source, extracted_at, created_at, updated_at`

func scanHomework(row interface{ Scan(...any) error }) (Homework, error) {
	var i Homework
	err := row.Scan(
		&i.PartitionKey,
		&i.SortKey,
		&i.Hour,
		&i.Subject,
		&i.Teacher,
		&i.Status,
		&i.Description,
		&i.HomeworkText,
		&i.ClassDescription,
		&i.Source,
		&i.ExtractedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectHomework(rows *sql.Rows) ([]Homework, error) {
	defer rows.Close()
	var items []Homework
	for rows.Next() {
		i, err := scanHomework(rows)
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

const getHomework = `-- name: GetHomework :one
select ` + homeworkColumns + ` from homework
where partition_key = ? and sort_key = ?
`

type GetHomeworkParams struct {
	PartitionKey string
	SortKey      string
}

func (q *Queries) GetHomework(ctx context.Context, arg GetHomeworkParams) (Homework, error) {
	row := q.db.QueryRowContext(ctx, getHomework, arg.PartitionKey, arg.SortKey)
	return scanHomework(row)
}

const insertHomework = `-- name: InsertHomework :exec
insert into homework (` + homeworkColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertHomework(ctx context.Context, arg Homework) error {
	_, err := q.db.ExecContext(ctx, insertHomework,
		arg.PartitionKey,
		arg.SortKey,
		arg.Hour,
		arg.Subject,
		arg.Teacher,
		arg.Status,
		arg.Description,
		arg.HomeworkText,
		arg.ClassDescription,
		arg.Source,
		arg.ExtractedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateHomework = `-- name: UpdateHomework :exec
update homework set
    hour = ?,
    subject = ?,
    teacher = ?,
    status = ?,
    description = ?,
    homework_text = ?,
    class_description = ?,
    source = ?,
    extracted_at = ?,
    updated_at = ?
where partition_key = ? and sort_key = ?
`

// UpdateHomework rewrites the content of a row, created_at is left as is.
func (q *Queries) UpdateHomework(ctx context.Context, arg Homework) error {
	_, err := q.db.ExecContext(ctx, updateHomework,
		arg.Hour,
		arg.Subject,
		arg.Teacher,
		arg.Status,
		arg.Description,
		arg.HomeworkText,
		arg.ClassDescription,
		arg.Source,
		arg.ExtractedAt,
		arg.UpdatedAt,
		arg.PartitionKey,
		arg.SortKey,
	)
	return err
}

const listHomeworkInRange = `-- name: ListHomeworkInRange :many
select ` + homeworkColumns + ` from homework
where partition_key >= ? and partition_key <= ?
order by partition_key, sort_key
`

type ListHomeworkInRangeParams struct {
	From string
	To   string
}

func (q *Queries) ListHomeworkInRange(ctx context.Context, arg ListHomeworkInRangeParams) ([]Homework, error) {
	rows, err := q.db.QueryContext(ctx, listHomeworkInRange, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collectHomework(rows)
}

const listHomeworkFrom = `-- name: ListHomeworkFrom :many
select ` + homeworkColumns + ` from homework
where partition_key >= ?
order by partition_key, sort_key
`

func (q *Queries) ListHomeworkFrom(ctx context.Context, from string) ([]Homework, error) {
	rows, err := q.db.QueryContext(ctx, listHomeworkFrom, from)
	if err != nil {
		return nil, err
	}
	return collectHomework(rows)
}

const deleteHomework = `-- name: DeleteHomework :execrows
delete from homework where partition_key = ? and sort_key = ?
`

type DeleteHomeworkParams struct {
	PartitionKey string
	SortKey      string
}

func (q *Queries) DeleteHomework(ctx context.Context, arg DeleteHomeworkParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteHomework, arg.PartitionKey, arg.SortKey)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const homeworkStats = `-- name: HomeworkStats :one
select count(*), min(partition_key), max(partition_key) from homework
`

func (q *Queries) HomeworkStats(ctx context.Context) (TableStats, error) {
	row := q.db.QueryRowContext(ctx, homeworkStats)
	var i TableStats
	err := row.Scan(&i.Count, &i.FirstDay, &i.LastDay)
	return i, err
}
