package db

import (
	"context"
)

const tableExists = `-- name: TableExists :one
select count(*) from sqlite_master where type = 'table' and name = ?
`

func (q *Queries) TableExists(ctx context.Context, name string) (bool, error) {
	row := q.db.QueryRowContext(ctx, tableExists, name)
	var count int64
	err := row.Scan(&count)
	return count > 0, err
}

// Exec runs a statement that has no generated query, like table creation.
func (q *Queries) Exec(ctx context.Context, statement string) error {
	_, err := q.db.ExecContext(ctx, statement)
	return err
}
