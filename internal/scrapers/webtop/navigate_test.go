package webtop

import (
	"context"
	"testing"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/components/browser/browsertest"
	"webtop-sync/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const homeworkPage = `<html><body><app-multi-cards-view></app-multi-cards-view></body></html>`
const schedulePage = `<html><body><div class="week-range">26/10/2025 - 01/11/2025</div><div class="day-header" data-index="0">ראשון 26/10</div></body></html>`

func loggedIn(t *testing.T, page *browsertest.Page, rec *telemetry.Recorder) (Manager, *Session) {
	manager, _ := newTestManager(page, rec)
	session, err := manager.Establish(context.Background(), testCreds)
	if err != nil {
		t.Fatal(err, rec.String())
	}
	t.Cleanup(func() { session.Close() })
	return manager, session
}

func TestNavigateToHomeworkByClickPath(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultHomeworkURL, homeworkPage)
	page.Clicks[browser.Text("a", "שיעורי בית").String()] = browserAction(DefaultHomeworkURL)
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)

	err := manager.NavigateTo(context.Background(), session, DestinationHomework)
	require.NoError(t, err, rec.String())
	require.False(t, rec.Has("warning", report_navigate_click_path))
	require.Contains(t, page.Calls(), "Navigate "+DefaultDashboard)
}

func TestNavigateToScheduleFallsBackToDirectURL(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultScheduleURL, schedulePage)
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)

	err := manager.NavigateTo(context.Background(), session, DestinationSchedule)
	require.NoError(t, err, rec.String())
	require.True(t, rec.Has("warning", report_navigate_click_path))
	require.Contains(t, page.Calls(), "Navigate "+DefaultScheduleURL)
}

func TestNavigateToHomeworkMenuLinkNeverClickable(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultHomeworkURL, homeworkPage)
	page.Hangs["Click "+browserTextLink("שיעורי בית")] = true
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)

	err := manager.NavigateTo(context.Background(), session, DestinationHomework)
	require.NoError(t, err, rec.String())
	require.True(t, rec.Has("warning", report_navigate_click_path))
	require.Contains(t, page.Calls(), "Navigate "+DefaultHomeworkURL)
}

func TestNavigateValidation(t *testing.T) {
	testCases := []struct {
		name   string
		setup  func(page *browsertest.Page)
		reason string
	}{
		{
			name: "wrong url",
			setup: func(page *browsertest.Page) {
				wrong := "https://webtop.smartschool.co.il/Student_Card/5"
				page.SetDocument(wrong, homeworkPage)
				page.Clicks[browser.Text("a", "שיעורי בית").String()] = browserAction(wrong)
			},
			reason: "url does not match",
		},
		{
			name: "missing probe",
			setup: func(page *browsertest.Page) {
				page.SetDocument(DefaultHomeworkURL, `<html><body><h1>error</h1></body></html>`)
				page.Clicks[browser.Text("a", "שיעורי בית").String()] = browserAction(DefaultHomeworkURL)
			},
			reason: "none of",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			page := newLoginPage(bareLoginPage)
			test.setup(page)
			manager, session := loggedIn(t, page, telemetry.NewRecorder())

			err := manager.NavigateTo(context.Background(), session, DestinationHomework)
			var target *NavigationValidationError
			require.ErrorAs(t, err, &target)
			require.Equal(t, DestinationHomework, target.Destination)
			require.Contains(t, target.Reason, test.reason)
		})
	}
}

func TestNavigateWithoutDirectURL(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	options := fastOptions()
	route := options.Routes[DestinationSchedule]
	route.DirectURL = ""
	options.Routes[DestinationSchedule] = route

	rec := telemetry.NewRecorder()
	manager := NewManager(&browsertest.Launcher{Page: page}, options, testClock, rec)
	session, err := manager.Establish(context.Background(), testCreds)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	err = manager.NavigateTo(context.Background(), session, DestinationSchedule)
	var target *SelectorNotFoundError
	require.ErrorAs(t, err, &target)
	require.Equal(t, "schedule click 1", target.Step)
}

func TestNavigateRequiresAuthenticatedSession(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	manager, _ := newTestManager(page, telemetry.NewRecorder())

	err := manager.NavigateTo(context.Background(), &Session{Page: page}, DestinationHomework)
	require.Error(t, err)
	err = manager.NavigateTo(context.Background(), nil, "grades")
	require.Error(t, err)
}
