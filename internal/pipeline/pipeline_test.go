package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/components/browser/browsertest"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"
	"webtop-sync/internal/scrapers/webtop"
	"webtop-sync/internal/store"

	"github.com/stretchr/testify/require"
)

var testClock = chrono.FixedTime{At: time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)}

const loginPage = `<html><body><form>
	<input id="userName">
	<input type="password">
	<button type="submit">כניסה</button>
</form></body></html>`

const homeworkPage = `<html><body><app-multi-cards-view>
<app-content-card><mat-card>
	<mat-card-title><div class="card-title">יום ראשון | 26/10/2025</div></mat-card-title>
	<div class="lesson-wrpper"><div role="row">
		<span role="cell">שיעור 1</span>
		<span role="cell"><a class="link-text">מתמטיקה</a></span>
		<span role="cell">דנה לוי</span>
		<span role="cell">התקיים</span>
		<span role="cell">נושא שיעור: שברים</span>
		<span role="cell"><span class="font-small">עמוד 12</span></span>
	</div></div>
</mat-card></app-content-card>
<app-content-card><mat-card>
	<mat-card-title><div class="card-title">יום שני | 27/10/2025</div></mat-card-title>
	<div class="lesson-wrpper"><div role="row">
		<span role="cell">שיעור 2</span>
		<span role="cell"><a class="link-text">אנגלית</a></span>
		<span role="cell">משה כהן</span>
		<span role="cell">התקיים</span>
		<span role="cell">נושא שיעור: past simple</span>
		<span role="cell"><span class="font-small">workbook p. 4</span></span>
	</div></div>
</mat-card></app-content-card>
</app-multi-cards-view></body></html>`

func testOptions() webtop.Options {
	options := webtop.DefaultOptions()
	options.NavigationTimeout = 200 * time.Millisecond
	options.SelectorTimeout = 50 * time.Millisecond
	options.PollInterval = 10 * time.Millisecond
	options.PollAttempts = 2
	options.IdleTimeout = 20 * time.Millisecond
	options.IdleQuiet = time.Millisecond
	options.TypeDelay = 0
	options.ReadinessTimeout = 20 * time.Millisecond
	options.SettleDelay = time.Millisecond
	return options
}

func newPortal() *browsertest.Page {
	page := browsertest.NewPage(map[string]string{
		webtop.DefaultLoginURL:    loginPage,
		webtop.DefaultDashboard:   `<html><body><nav></nav></body></html>`,
		webtop.DefaultHomeworkURL: homeworkPage,
	})
	page.Clicks[browser.CSS("button[type=submit]").String()] = browsertest.Action{
		Navigate:   webtop.DefaultDashboard,
		SetCookies: []browser.Cookie{{Name: "webToken", Value: "token"}},
	}
	return page
}

type memorySink struct {
	homework []records.Homework
	schedule []records.Schedule
	calls    int
}

func (s *memorySink) UpsertHomework(ctx context.Context, items []records.Homework) store.UpsertResult {
	s.calls++
	s.homework = append(s.homework, items...)
	return store.UpsertResult{Written: len(items)}
}

func (s *memorySink) UpsertSchedule(ctx context.Context, items []records.Schedule) store.UpsertResult {
	s.calls++
	s.schedule = append(s.schedule, items...)
	return store.UpsertResult{Written: len(items)}
}

type fakeLessons struct {
	items []records.Homework
	err   error
	used  bool
}

func (f *fakeLessons) UseSession(ctx context.Context, session *webtop.Session) error {
	f.used = true
	return nil
}

func (f *fakeLessons) Homework(ctx context.Context, req webtop.LessonsRequest, extractedAt time.Time) ([]records.Homework, error) {
	return f.items, f.err
}

func newOrchestrator(launcher browser.Launcher, api LessonsAPI, sink Sink, rec *telemetry.Recorder) Orchestrator {
	options := testOptions()
	return NewOrchestrator(
		webtop.NewManager(launcher, options, testClock, rec),
		webtop.NewExtractor(options, nil, testClock, rec),
		api,
		sink,
		webtop.Credentials{Username: "student", Password: "secret"},
		testClock,
		rec,
	)
}

func TestRunBothKeepsHomeworkWhenScheduleFails(t *testing.T) {
	page := newPortal()
	sink := &memorySink{}
	rec := telemetry.NewRecorder()
	orchestrator := newOrchestrator(&browsertest.Launcher{Page: page}, nil, sink, rec)

	report, err := orchestrator.Run(context.Background(), Request{
		Kinds:  []records.Kind{records.KindHomework, records.KindSchedule},
		Window: WindowHistorical,
	})
	require.NoError(t, err, rec.String())

	homework, ok := report.Result(records.KindHomework)
	require.True(t, ok)
	require.NoError(t, homework.Err)
	require.Equal(t, 2, homework.Extracted)
	require.Equal(t, 2, homework.Upsert.Written)
	require.Len(t, sink.homework, 2)

	schedule, ok := report.Result(records.KindSchedule)
	require.True(t, ok)
	var target *webtop.NavigationValidationError
	require.ErrorAs(t, schedule.Err, &target)
	require.Empty(t, sink.schedule)

	require.Equal(t, 2, report.Written())
	require.False(t, report.NoItems())
	require.Error(t, report.Err())
	require.True(t, page.Closed())
}

func TestRunSessionFailure(t *testing.T) {
	testCases := []struct {
		name     string
		launcher func() *browsertest.Launcher
	}{
		{
			name: "launch",
			launcher: func() *browsertest.Launcher {
				return &browsertest.Launcher{Err: errors.New("chrome not found")}
			},
		},
		{
			name: "login",
			launcher: func() *browsertest.Launcher {
				page := newPortal()
				page.Clicks[browser.CSS("button[type=submit]").String()] = browsertest.Action{}
				return &browsertest.Launcher{Page: page}
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			launcher := test.launcher()
			sink := &memorySink{}
			rec := telemetry.NewRecorder()
			orchestrator := newOrchestrator(launcher, nil, sink, rec)

			_, err := orchestrator.Run(context.Background(), Request{})
			require.Error(t, err)
			require.True(t, webtop.IsLoginFailure(err) || launcher.Page == nil)
			require.Equal(t, 0, sink.calls)
			if launcher.Page != nil {
				require.True(t, launcher.Page.Closed())
			}
			require.True(t, rec.Has("broken", report_run_session))
		})
	}
}

func TestRunDailyDryRun(t *testing.T) {
	page := newPortal()
	sink := &memorySink{}
	rec := telemetry.NewRecorder()
	orchestrator := newOrchestrator(&browsertest.Launcher{Page: page}, nil, sink, rec)

	report, err := orchestrator.Run(context.Background(), Request{
		Kinds:  []records.Kind{records.KindHomework},
		Window: WindowDaily,
		DryRun: true,
	})
	require.NoError(t, err)
	require.Equal(t, 0, sink.calls)

	homework, _ := report.Result(records.KindHomework)
	require.Equal(t, 2, homework.Extracted)
	require.Equal(t, 1, homework.Kept)
	require.Len(t, homework.Homework, 1)
	require.Equal(t, "2025-10-27", homework.Homework[0].Date)
	require.Equal(t, 0, report.Written())
}

func TestRunAPISourceWithoutItems(t *testing.T) {
	page := newPortal()
	sink := &memorySink{}
	api := &fakeLessons{}
	rec := telemetry.NewRecorder()
	orchestrator := newOrchestrator(&browsertest.Launcher{Page: page}, api, sink, rec)

	report, err := orchestrator.Run(context.Background(), Request{
		Kinds:          []records.Kind{records.KindHomework},
		HomeworkSource: SourceAPI,
	})
	require.NoError(t, err)
	require.True(t, api.used)
	require.True(t, report.NoItems())
	require.NoError(t, report.Err())
	require.NotContains(t, page.Calls(), "Navigate "+webtop.DefaultHomeworkURL)
}

func TestParseKindsAndWindow(t *testing.T) {
	kinds, err := ParseKinds("both")
	require.NoError(t, err)
	require.Equal(t, []records.Kind{records.KindHomework, records.KindSchedule}, kinds)

	kinds, err = ParseKinds("schedule")
	require.NoError(t, err)
	require.Equal(t, []records.Kind{records.KindSchedule}, kinds)

	_, err = ParseKinds("grades")
	require.Error(t, err)

	window, err := ParseWindow("")
	require.NoError(t, err)
	require.Equal(t, WindowHistorical, window)

	_, err = ParseWindow("weekly")
	require.Error(t, err)
}
