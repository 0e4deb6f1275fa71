package webtop

import (
	"context"
	"errors"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"
)

const (
	report_extract_readiness = "extract.readiness"
	report_extract_archive   = "extract.archive"
)

// PageArchive keeps the raw html of every extracted page.
type PageArchive interface {
	Save(ctx context.Context, kind records.Kind, url, html string) error
}

// Extractor reads records out of the page a session is currently on. It never
// navigates.
type Extractor struct {
	options Options
	archive PageArchive
	time    chrono.TimeAPI
	tel     telemetry.API
}

// NewExtractor creates an Extractor, archive may be nil.
func NewExtractor(options Options, archive PageArchive, time chrono.TimeAPI, tel telemetry.API) Extractor {
	assert.NotNil(time)
	assert.NotNil(tel)

	return Extractor{
		options: options,
		archive: archive,
		time:    time,
		tel:     telemetry.NewScopedAPI("webtop", tel),
	}
}

// waitReady waits for the network to settle, a timeout is reported and the
// page is read as it is.
func (e Extractor) waitReady(ctx context.Context, session *Session) {
	readyCtx, cancel := context.WithTimeout(ctx, e.options.ReadinessTimeout)
	defer cancel()

	start := time.Now()
	err := session.Page.WaitIdle(readyCtx, e.options.SettleDelay)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		e.tel.ReportWarning(report_extract_readiness, err, time.Since(start).String())
		return
	}
	if err != nil {
		e.tel.ReportDebug(report_extract_readiness, err)
	}
}

func (e Extractor) read(ctx context.Context, session *Session, kind records.Kind) (string, string, error) {
	e.waitReady(ctx, session)
	if ctx.Err() != nil {
		return "", "", &ExtractionError{Kind: string(kind), Err: ctx.Err()}
	}

	html, err := session.Page.HTML(ctx)
	if err != nil {
		return "", "", &ExtractionError{Kind: string(kind), Err: err}
	}
	url, err := session.Page.URL(ctx)
	if err != nil {
		return "", "", &ExtractionError{Kind: string(kind), Err: err}
	}

	if e.archive != nil {
		err = e.archive.Save(ctx, kind, url, html)
		if err != nil {
			e.tel.ReportWarning(report_extract_archive, err, url)
		}
	}
	return html, url, nil
}

// ExtractHomework reads every homework record of the current page.
func (e Extractor) ExtractHomework(ctx context.Context, session *Session) ([]records.Homework, error) {
	html, url, err := e.read(ctx, session, records.KindHomework)
	if err != nil {
		return nil, err
	}
	items, err := ParseHomework(ctx, html, url, session.CreatedAt, e.time, e.tel)
	if err != nil {
		return nil, &ExtractionError{Kind: string(records.KindHomework), Err: err}
	}
	e.tel.ReportCount("extract.homework", int64(len(items)))
	return items, nil
}

// ExtractSchedule reads every class slot of the current page.
func (e Extractor) ExtractSchedule(ctx context.Context, session *Session) ([]records.Schedule, error) {
	html, url, err := e.read(ctx, session, records.KindSchedule)
	if err != nil {
		return nil, err
	}
	items, err := ParseSchedule(ctx, html, url, session.CreatedAt, e.time, e.tel)
	if err != nil {
		return nil, &ExtractionError{Kind: string(records.KindSchedule), Err: err}
	}
	e.tel.ReportCount("extract.schedule", int64(len(items)))
	return items, nil
}
