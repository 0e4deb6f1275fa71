package db

import _ "embed"

//go:embed homework.sql
var HomeworkTable string

//go:embed schedule.sql
var ScheduleTable string

// Table pairs a table name with the statement that creates it.
type Table struct {
	Name   string
	Create string
}

// Tables lists every table of the store in creation order.
var Tables = []Table{
	{Name: "homework", Create: HomeworkTable},
	{Name: "schedule", Create: ScheduleTable},
}
