package webtop

import (
	"context"
	"fmt"
	"testing"
	"time"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"

	"github.com/stretchr/testify/require"
)

type memoryArchive struct {
	pages map[string]string
	err   error
}

func (a *memoryArchive) Save(ctx context.Context, kind records.Kind, url, html string) error {
	if a.err != nil {
		return a.err
	}
	a.pages[string(kind)+" "+url] = html
	return nil
}

func TestExtractHomeworkFromSession(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultHomeworkURL, historyFixture)
	page.Clicks[browserTextLink("שיעורי בית")] = browserAction(DefaultHomeworkURL)
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)

	err := manager.NavigateTo(context.Background(), session, DestinationHomework)
	if err != nil {
		t.Fatal(err)
	}

	archive := &memoryArchive{pages: map[string]string{}}
	extractor := NewExtractor(fastOptions(), archive, testClock, rec)

	first, err := extractor.ExtractHomework(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	second, err := extractor.ExtractHomework(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, first, 2)
	require.Equal(t, first, second)
	require.Equal(t, session.CreatedAt, first[0].ExtractedAt)
	require.Equal(t, historyFixture, archive.pages["homework "+DefaultHomeworkURL])
}

func TestExtractProceedsWhenPageNeverSettles(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultHomeworkURL, historyFixture)
	page.Clicks[browserTextLink("שיעורי בית")] = browserAction(DefaultHomeworkURL)
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)
	err := manager.NavigateTo(context.Background(), session, DestinationHomework)
	if err != nil {
		t.Fatal(err)
	}
	page.IdleDelay = time.Minute

	extractor := NewExtractor(fastOptions(), nil, testClock, rec)
	start := time.Now()
	items, err := extractor.ExtractHomework(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, rec.Has("warning", report_extract_readiness))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestExtractKeepsGoingWhenArchiveFails(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	page.SetDocument(DefaultScheduleURL, scheduleFixture)
	rec := telemetry.NewRecorder()
	manager, session := loggedIn(t, page, rec)
	err := manager.NavigateTo(context.Background(), session, DestinationSchedule)
	if err != nil {
		t.Fatal(err)
	}

	archive := &memoryArchive{err: fmt.Errorf("disk full")}
	extractor := NewExtractor(fastOptions(), archive, testClock, rec)

	items, err := extractor.ExtractSchedule(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, rec.Has("warning", report_extract_archive))
}

func TestExtractReadFailure(t *testing.T) {
	page := newLoginPage(bareLoginPage)
	rec := telemetry.NewRecorder()
	_, session := loggedIn(t, page, rec)
	page.Failures["HTML"] = fmt.Errorf("target crashed")

	extractor := NewExtractor(fastOptions(), nil, testClock, rec)
	_, err := extractor.ExtractHomework(context.Background(), session)

	var target *ExtractionError
	require.ErrorAs(t, err, &target)
	require.Equal(t, "homework", target.Kind)
}
