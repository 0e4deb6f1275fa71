package webtop

import (
	"context"
	"testing"
	"time"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const scheduleFixture = `<html><body>
<div class="week-range">28/12/2025 - 03/01/2026</div>
<div class="schedule-grid">
	<div class="day-header" data-index="0">ראשון 28/12</div>
	<div class="day-header" data-index="5">יום שישי 2/1</div>
	<div class="day-header" data-index="6">שבת</div>

	<div class="schedule-event" id="lesson-0_0">
		<b class="event-title">מתמטיקה</b>
		<div><b>מורה:</b> <span> </span><span>דנה לוי</span></div>
		<div><b>נושא:</b> משוואות</div>
		<div><b>הערות:</b> להביא מחשבון</div>
	</div>
	<div class="schedule-event" data-id="cell-2-5">
		<div><b>מורה:</b> משה כהן</div>
		<b>אנגלית</b>
	</div>
	<div class="schedule-event" id="broken">
		<b>ספורט</b>
	</div>
	<div class="schedule-event" id="lesson-1_9">
		<b>מדעים</b>
	</div>
</div>
</body></html>`

func TestParseSchedule(t *testing.T) {
	extractedAt := time.Date(2025, 12, 28, 7, 0, 0, 0, time.UTC)
	rec := telemetry.NewRecorder()

	items, err := ParseSchedule(context.Background(), scheduleFixture, DefaultScheduleURL, extractedAt, testClock, rec)
	if err != nil {
		t.Fatal(err)
	}

	expected := []records.Schedule{
		{
			Date:             "2025-12-28",
			ClassNumber:      1,
			Teacher:          "דנה לוי",
			Subject:          "מתמטיקה",
			ClassDescription: "משוואות",
			ClassComments:    "להביא מחשבון",
			DayName:          "ראשון",
			Source:           DefaultScheduleURL,
			ExtractedAt:      extractedAt,
		},
		{
			Date:        "2026-01-02",
			ClassNumber: 3,
			Teacher:     "משה כהן",
			Subject:     "אנגלית",
			DayName:     "שישי",
			Source:      DefaultScheduleURL,
			ExtractedAt: extractedAt,
		},
	}
	if diff := cmp.Diff(expected, items); diff != "" {
		t.Fatalf("unexpected schedule (-want +got):\n%s", diff)
	}

	// "broken" id, unknown date index 9 and the header without a date
	require.Len(t, rec.Reports("warning"), 3)
}

func TestParseEventId(t *testing.T) {
	testCases := []struct {
		id    string
		hour  int
		date  int
		fails bool
	}{
		{id: "lesson-3_1", hour: 3, date: 1},
		{id: "cell-10-4", hour: 10, date: 4},
		{id: "7_0", hour: 7, date: 0},
		{id: "lesson", fails: true},
		{id: "", fails: true},
		{id: "lesson-99999999999999999999_1", fails: true},
		{id: "lesson-2_99999999999999999999", fails: true},
	}

	for _, test := range testCases {
		hour, date, err := parseEventId(test.id)
		if test.fails {
			require.Error(t, err, test.id)
			continue
		}
		require.NoError(t, err, test.id)
		require.Equal(t, test.hour, hour)
		require.Equal(t, test.date, date)
	}
}
