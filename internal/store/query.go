package store

import (
	"context"
	"time"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/records"
	"webtop-sync/internal/store/db"
	"webtop-sync/lib/textutil"
)

// StoredHomework is a homework row together with its bookkeeping columns.
type StoredHomework struct {
	records.Homework `yaml:",inline"`
	SortKey          string    `json:"sort_key" yaml:"sort_key"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// StoredSchedule is a class slot row together with its bookkeeping columns.
type StoredSchedule struct {
	records.Schedule `yaml:",inline"`
	SortKey          string    `json:"sort_key" yaml:"sort_key"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

func fromUnixMilli(ms int64, location *time.Location) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).In(location)
}

func homeworkFromRow(row db.Homework) records.Homework {
	return records.Homework{
		Date:             row.PartitionKey,
		Hour:             row.Hour,
		Subject:          row.Subject,
		Teacher:          row.Teacher,
		Status:           row.Status,
		Description:      row.Description,
		HomeworkText:     row.HomeworkText,
		ClassDescription: row.ClassDescription,
		Source:           row.Source,
		ExtractedAt:      fromUnixMilli(row.ExtractedAt, time.UTC),
	}
}

func scheduleFromRow(row db.Schedule) records.Schedule {
	return records.Schedule{
		Date:             row.PartitionKey,
		ClassNumber:      int(row.ClassNumber),
		Teacher:          row.Teacher,
		Subject:          row.Subject,
		ClassDescription: row.ClassDescription,
		ClassComments:    row.ClassComments,
		DayName:          row.DayName,
		Source:           row.Source,
		ExtractedAt:      fromUnixMilli(row.ExtractedAt, time.UTC),
	}
}

func (s Store) storedHomework(rows []db.Homework) []StoredHomework {
	location := s.time.Location()
	out := make([]StoredHomework, len(rows))
	for i, row := range rows {
		item := homeworkFromRow(row)
		item.ExtractedAt = fromUnixMilli(row.ExtractedAt, location)
		out[i] = StoredHomework{
			Homework:  item,
			SortKey:   row.SortKey,
			CreatedAt: fromUnixMilli(row.CreatedAt, location),
			UpdatedAt: fromUnixMilli(row.UpdatedAt, location),
		}
	}
	return out
}

func (s Store) storedSchedule(rows []db.Schedule) []StoredSchedule {
	location := s.time.Location()
	out := make([]StoredSchedule, len(rows))
	for i, row := range rows {
		item := scheduleFromRow(row)
		item.ExtractedAt = fromUnixMilli(row.ExtractedAt, location)
		out[i] = StoredSchedule{
			Schedule:  item,
			SortKey:   row.SortKey,
			CreatedAt: fromUnixMilli(row.CreatedAt, location),
			UpdatedAt: fromUnixMilli(row.UpdatedAt, location),
		}
	}
	return out
}

// matching keeps the items whose subject matches filter, stopping at limit
// when it is positive.
func matching[T any](items []T, subject func(T) string, filter string, limit int) []T {
	out := []T{}
	for _, item := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if textutil.MatchSubject(subject(item), filter) {
			out = append(out, item)
		}
	}
	return out
}

func homeworkSubject(h StoredHomework) string {
	return h.Subject
}

func scheduleSubject(s StoredSchedule) string {
	return s.Subject
}

// HomeworkByDate returns the homework of one day ordered by sort key.
func (s Store) HomeworkByDate(ctx context.Context, date string) ([]StoredHomework, error) {
	return s.HomeworkInRange(ctx, date, date, "")
}

// HomeworkInRange returns the homework dated between from and to inclusive.
func (s Store) HomeworkInRange(ctx context.Context, from, to, subject string) ([]StoredHomework, error) {
	err := validateRange(from, to)
	if err != nil {
		return nil, err
	}
	param := db.ListHomeworkInRangeParams{From: from, To: to}
	rows, err := s.db.ListHomeworkInRange(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListHomeworkInRange", param)
		return nil, err
	}
	return matching(s.storedHomework(rows), homeworkSubject, subject, 0), nil
}

// UpcomingHomework returns up to limit homework records dated today or later.
func (s Store) UpcomingHomework(ctx context.Context, subject string, limit int) ([]StoredHomework, error) {
	today := chrono.Today(s.time)
	rows, err := s.db.ListHomeworkFrom(ctx, today)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListHomeworkFrom", today)
		return nil, err
	}
	return matching(s.storedHomework(rows), homeworkSubject, subject, limit), nil
}

// ScheduleByDate returns the class slots of one day ordered by class number.
func (s Store) ScheduleByDate(ctx context.Context, date string) ([]StoredSchedule, error) {
	return s.ScheduleInRange(ctx, date, date, "")
}

// ScheduleInRange returns the class slots dated between from and to inclusive.
func (s Store) ScheduleInRange(ctx context.Context, from, to, subject string) ([]StoredSchedule, error) {
	err := validateRange(from, to)
	if err != nil {
		return nil, err
	}
	param := db.ListScheduleInRangeParams{From: from, To: to}
	rows, err := s.db.ListScheduleInRange(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListScheduleInRange", param)
		return nil, err
	}
	return matching(s.storedSchedule(rows), scheduleSubject, subject, 0), nil
}

// UpcomingSchedule returns up to limit class slots dated today or later.
func (s Store) UpcomingSchedule(ctx context.Context, subject string, limit int) ([]StoredSchedule, error) {
	today := chrono.Today(s.time)
	rows, err := s.db.ListScheduleFrom(ctx, today)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListScheduleFrom", today)
		return nil, err
	}
	return matching(s.storedSchedule(rows), scheduleSubject, subject, limit), nil
}

func validateRange(from, to string) error {
	err := records.ValidateDate(from)
	if err != nil {
		return err
	}
	return records.ValidateDate(to)
}

// DeleteHomework removes one row, it reports whether a row existed.
func (s Store) DeleteHomework(ctx context.Context, date, sortKey string) (bool, error) {
	param := db.DeleteHomeworkParams{PartitionKey: date, SortKey: sortKey}
	count, err := s.db.DeleteHomework(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "DeleteHomework", param)
		return false, err
	}
	return count > 0, nil
}

// DeleteSchedule removes one row, it reports whether a row existed.
func (s Store) DeleteSchedule(ctx context.Context, date, sortKey string) (bool, error) {
	param := db.DeleteScheduleParams{PartitionKey: date, SortKey: sortKey}
	count, err := s.db.DeleteSchedule(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "DeleteSchedule", param)
		return false, err
	}
	return count > 0, nil
}

type TableStats struct {
	Table    string `json:"table" yaml:"table"`
	Count    int64  `json:"count" yaml:"count"`
	FirstDay string `json:"first_day,omitempty" yaml:"first_day,omitempty"`
	LastDay  string `json:"last_day,omitempty" yaml:"last_day,omitempty"`
}

// Stats returns row counts and the covered date range of every table.
func (s Store) Stats(ctx context.Context) ([]TableStats, error) {
	homework, err := s.db.HomeworkStats(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "HomeworkStats")
		return nil, err
	}
	schedule, err := s.db.ScheduleStats(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ScheduleStats")
		return nil, err
	}
	return []TableStats{
		{
			Table:    string(records.KindHomework),
			Count:    homework.Count,
			FirstDay: homework.FirstDay.String,
			LastDay:  homework.LastDay.String,
		},
		{
			Table:    string(records.KindSchedule),
			Count:    schedule.Count,
			FirstDay: schedule.FirstDay.String,
			LastDay:  schedule.LastDay.String,
		},
	}, nil
}
