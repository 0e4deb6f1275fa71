package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

type Homework struct {
	PartitionKey     string
	SortKey          string
	Hour             string
	Subject          string
	Teacher          string
	Status           string
	Description      string
	HomeworkText     string
	ClassDescription string
	Source           string
	ExtractedAt      int64
	CreatedAt        int64
	UpdatedAt        int64
}

type Schedule struct {
	PartitionKey     string
	SortKey          string
	ClassNumber      int64
	Teacher          string
	Subject          string
	ClassDescription string
	ClassComments    string
	DayName          string
	Source           string
	ExtractedAt      int64
	CreatedAt        int64
	UpdatedAt        int64
}

type TableStats struct {
	Count    int64
	FirstDay sql.NullString
	LastDay  sql.NullString
}
