package store

import (
	"context"
	"testing"
	"time"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"

	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func (c *stepClock) Location() *time.Location {
	return time.UTC
}

func setup(t testing.TB) (Store, *stepClock, *telemetry.Recorder) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	clock := &stepClock{now: time.Date(2025, 10, 27, 8, 0, 0, 0, time.UTC)}
	rec := telemetry.NewRecorder()
	s := NewStore(database, clock, rec)
	err = s.CreateIfAbsent(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return s, clock, rec
}

func homework(date, hour, subject, text string) records.Homework {
	return records.Homework{
		Date:         date,
		Hour:         hour,
		Subject:      subject,
		HomeworkText: text,
		Description:  hour + " " + subject,
		ExtractedAt:  time.Date(2025, 10, 27, 7, 0, 0, 0, time.UTC),
	}
}

func TestCreateIfAbsentTwice(t *testing.T) {
	s, _, _ := setup(t)
	require.NoError(t, s.CreateIfAbsent(context.Background()))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, int64(0), stats[0].Count)
	require.Equal(t, "", stats[0].FirstDay)
}

func TestUpsertSameRecordTwice(t *testing.T) {
	s, clock, _ := setup(t)
	ctx := context.Background()
	item := homework("2025-10-27", "שיעור 1", "מתמטיקה", "עמוד 12")

	result := s.UpsertHomework(ctx, []records.Homework{item})
	require.Equal(t, 1, result.Written)
	require.NoError(t, result.Err())

	first, err := s.HomeworkByDate(ctx, "2025-10-27")
	require.NoError(t, err)
	require.Len(t, first, 1)

	clock.now = clock.now.Add(time.Hour)
	result = s.UpsertHomework(ctx, []records.Homework{item})
	require.Equal(t, 0, result.Written)
	require.Equal(t, 1, result.Unchanged)

	second, err := s.HomeworkByDate(ctx, "2025-10-27")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].UpdatedAt, second[0].UpdatedAt)
	require.Equal(t, first[0].CreatedAt, second[0].CreatedAt)
}

func TestUpsertChangedContent(t *testing.T) {
	s, clock, _ := setup(t)
	ctx := context.Background()
	item := homework("2025-10-27", "שיעור 1", "מתמטיקה", "עמוד 12")

	s.UpsertHomework(ctx, []records.Homework{item})
	created := clock.now

	clock.now = clock.now.Add(time.Hour)
	item.HomeworkText = "עמוד 13"
	result := s.UpsertHomework(ctx, []records.Homework{item})
	require.Equal(t, 1, result.Written)

	stored, err := s.HomeworkByDate(ctx, "2025-10-27")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "עמוד 13", stored[0].HomeworkText)
	require.True(t, stored[0].CreatedAt.Equal(created))
	require.True(t, stored[0].UpdatedAt.Equal(clock.now))
}

func TestUpsertCountsBadRecords(t *testing.T) {
	s, _, rec := setup(t)
	items := []records.Homework{
		homework("2025-10-26", "שיעור 1", "מתמטיקה", "a"),
		homework("2025-10-26", "שיעור 2", "אנגלית", "b"),
		homework("2025-13-01", "שיעור 1", "היסטוריה", "c"),
		homework("2025-10-27", "שיעור 1", "מתמטיקה", "d"),
		homework("2025-10-28", "", "ספרות", "e"),
	}

	result := s.UpsertHomework(context.Background(), items)
	require.Equal(t, 4, result.Written)
	require.Equal(t, 1, result.Errored)
	require.Len(t, result.Errors, 1)

	var target *PersistenceError
	require.ErrorAs(t, result.Err(), &target)
	require.Equal(t, "key", target.Op)
	require.True(t, rec.Has("warning", report_upsert))
}

func TestUpsertWithoutHour(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	s.UpsertHomework(ctx, []records.Homework{homework("2025-10-28", "", "ספרות", "לקרוא")})

	stored, err := s.HomeworkByDate(ctx, "2025-10-28")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "unknown#ספרות", stored[0].SortKey)
}

func TestScheduleOrderAndUpdate(t *testing.T) {
	s, clock, _ := setup(t)
	ctx := context.Background()
	items := []records.Schedule{
		{Date: "2025-10-27", ClassNumber: 10, Teacher: "Dana Levi", Subject: "Math"},
		{Date: "2025-10-27", ClassNumber: 2, Teacher: "", Subject: "English"},
	}

	result := s.UpsertSchedule(ctx, items)
	require.Equal(t, 2, result.Written)

	stored, err := s.ScheduleByDate(ctx, "2025-10-27")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "02#unknown", stored[0].SortKey)
	require.Equal(t, "10#danalevi", stored[1].SortKey)

	clock.now = clock.now.Add(time.Minute)
	items[0].ClassComments = "bring a calculator"
	result = s.UpsertSchedule(ctx, items)
	require.Equal(t, 1, result.Written)
	require.Equal(t, 1, result.Unchanged)
}

func TestQueries(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	s.UpsertHomework(ctx, []records.Homework{
		homework("2025-10-20", "1", "Mathematics", "old"),
		homework("2025-10-27", "1", "Mathematics", "today"),
		homework("2025-10-28", "2", "History", "tomorrow"),
		homework("2025-10-30", "3", "Mathematics", "later"),
	})

	testCases := []struct {
		name     string
		query    func() ([]StoredHomework, error)
		expected []string
	}{
		{
			name: "range",
			query: func() ([]StoredHomework, error) {
				return s.HomeworkInRange(ctx, "2025-10-20", "2025-10-28", "")
			},
			expected: []string{"old", "today", "tomorrow"},
		},
		{
			name: "range with a misspelled subject",
			query: func() ([]StoredHomework, error) {
				return s.HomeworkInRange(ctx, "2025-10-01", "2025-10-31", "mathematcs")
			},
			expected: []string{"old", "today", "later"},
		},
		{
			name: "upcoming",
			query: func() ([]StoredHomework, error) {
				return s.UpcomingHomework(ctx, "", 0)
			},
			expected: []string{"today", "tomorrow", "later"},
		},
		{
			name: "upcoming with limit and subject",
			query: func() ([]StoredHomework, error) {
				return s.UpcomingHomework(ctx, "math", 1)
			},
			expected: []string{"today"},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			items, err := test.query()
			if err != nil {
				t.Fatal(err)
			}
			var texts []string
			for _, item := range items {
				texts = append(texts, item.HomeworkText)
			}
			require.Equal(t, test.expected, texts)
		})
	}

	_, err := s.HomeworkInRange(ctx, "2025-10-01", "not a date", "")
	require.Error(t, err)
}

func TestDeleteAndStats(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	s.UpsertHomework(ctx, []records.Homework{
		homework("2025-10-20", "1", "Mathematics", "a"),
		homework("2025-10-27", "1", "History", "b"),
	})

	deleted, err := s.DeleteHomework(ctx, "2025-10-20", "1#Mathematics")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.DeleteHomework(ctx, "2025-10-20", "1#Mathematics")
	require.NoError(t, err)
	require.False(t, deleted)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, TableStats{
		Table:    "homework",
		Count:    1,
		FirstDay: "2025-10-27",
		LastDay:  "2025-10-27",
	}, stats[0])
	require.Equal(t, int64(0), stats[1].Count)
}
