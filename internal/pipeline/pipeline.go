// Package pipeline runs one scrape: a single portal session, navigation and
// extraction for every requested kind, then the upsert of what was found.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"
	"webtop-sync/internal/scrapers/webtop"
	"webtop-sync/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/pipeline")

const (
	report_run_session = "run.session"
	report_run_kind    = "run.kind"
)

// Window selects which extracted records are kept.
type Window string

const (
	// WindowHistorical keeps every record on the page.
	WindowHistorical Window = "historical"
	// WindowDaily keeps the records dated today.
	WindowDaily Window = "daily"
)

func ParseWindow(value string) (Window, error) {
	switch Window(value) {
	case "", WindowHistorical:
		return WindowHistorical, nil
	case WindowDaily:
		return WindowDaily, nil
	}
	return "", fmt.Errorf("unknown window %q, expected historical or daily", value)
}

// HomeworkSource selects where homework is read from.
type HomeworkSource string

const (
	SourcePage HomeworkSource = "page"
	SourceAPI  HomeworkSource = "api"
)

// ParseKinds turns "homework", "schedule" or "both" into the kinds to run.
func ParseKinds(value string) ([]records.Kind, error) {
	switch value {
	case "", "both":
		return []records.Kind{records.KindHomework, records.KindSchedule}, nil
	case string(records.KindHomework):
		return []records.Kind{records.KindHomework}, nil
	case string(records.KindSchedule):
		return []records.Kind{records.KindSchedule}, nil
	}
	return nil, fmt.Errorf("unknown kind %q, expected homework, schedule or both", value)
}

// Sink persists extracted records, store.Store implements it.
type Sink interface {
	UpsertHomework(ctx context.Context, items []records.Homework) store.UpsertResult
	UpsertSchedule(ctx context.Context, items []records.Schedule) store.UpsertResult
}

// LessonsAPI reads homework from the portal's json api, webtop.APIClient
// implements it.
type LessonsAPI interface {
	UseSession(ctx context.Context, session *webtop.Session) error
	Homework(ctx context.Context, req webtop.LessonsRequest, extractedAt time.Time) ([]records.Homework, error)
}

type Request struct {
	Kinds          []records.Kind
	Window         Window
	DryRun         bool
	HomeworkSource HomeworkSource
	Lessons        webtop.LessonsRequest
}

// KindResult is the outcome of one kind. Err is set when navigation or
// extraction failed, per record persistence failures live in Upsert.
type KindResult struct {
	Kind      records.Kind       `json:"kind" yaml:"kind"`
	Extracted int                `json:"extracted" yaml:"extracted"`
	Kept      int                `json:"kept" yaml:"kept"`
	Upsert    store.UpsertResult `json:"upsert" yaml:"upsert"`
	Err       error              `json:"-" yaml:"-"`
	Homework  []records.Homework `json:"homework,omitempty" yaml:"homework,omitempty"`
	Schedule  []records.Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

type Report struct {
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
	DryRun     bool         `json:"dry_run" yaml:"dry_run"`
	Results    []KindResult `json:"results" yaml:"results"`
}

// Written is the number of rows inserted or updated across every kind.
func (r Report) Written() int {
	total := 0
	for _, result := range r.Results {
		total += result.Upsert.Written
	}
	return total
}

// NoItems is true when every kind succeeded without finding a record.
func (r Report) NoItems() bool {
	for _, result := range r.Results {
		if result.Err != nil || result.Kept > 0 {
			return false
		}
	}
	return true
}

// Err joins the failures of every kind.
func (r Report) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Kind, result.Err))
		}
	}
	return errors.Join(errs...)
}

// Result returns the result of a kind.
func (r Report) Result(kind records.Kind) (KindResult, bool) {
	for _, result := range r.Results {
		if result.Kind == kind {
			return result, true
		}
	}
	return KindResult{}, false
}

type Orchestrator struct {
	sessions    webtop.Manager
	extractor   webtop.Extractor
	api         LessonsAPI
	sink        Sink
	credentials webtop.Credentials
	time        chrono.TimeAPI
	tel         telemetry.API
}

// NewOrchestrator creates an Orchestrator, api may be nil when homework is
// only read from the page.
func NewOrchestrator(
	sessions webtop.Manager,
	extractor webtop.Extractor,
	api LessonsAPI,
	sink Sink,
	credentials webtop.Credentials,
	time chrono.TimeAPI,
	tel telemetry.API,
) Orchestrator {
	assert.NotNil(sink)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Orchestrator{
		sessions:    sessions,
		extractor:   extractor,
		api:         api,
		sink:        sink,
		credentials: credentials,
		time:        time,
		tel:         telemetry.NewScopedAPI("pipeline", tel),
	}
}

// Run performs one scrape. An error is only returned when no session could
// be established, failures of a single kind are reported in its KindResult.
func (o Orchestrator) Run(ctx context.Context, req Request) (Report, error) {
	ctx, span := tracer.Start(ctx, "run")
	defer span.End()

	report := Report{
		StartedAt: o.time.Now(),
		DryRun:    req.DryRun,
	}
	if len(req.Kinds) == 0 {
		req.Kinds, _ = ParseKinds("")
	}

	session, err := o.sessions.Establish(ctx, o.credentials)
	if err != nil {
		o.tel.ReportBroken(report_run_session, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to establish session")
		report.FinishedAt = o.time.Now()
		return report, fmt.Errorf("establish session: %w", err)
	}
	defer session.Close()

	for _, kind := range req.Kinds {
		result := o.runKind(ctx, session, kind, req)
		if result.Err != nil {
			o.tel.ReportWarning(report_run_kind, result.Err, string(kind))
			span.AddEvent("kind failed", traceKind(kind))
		}
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = o.time.Now()
	o.tel.ReportCount("run.written", int64(report.Written()))
	return report, nil
}

func (o Orchestrator) runKind(ctx context.Context, session *webtop.Session, kind records.Kind, req Request) KindResult {
	result := KindResult{Kind: kind}
	if ctx.Err() != nil {
		result.Err = ctx.Err()
		return result
	}

	keep := o.window(req.Window)
	switch kind {
	case records.KindHomework:
		items, err := o.homework(ctx, session, req)
		if err != nil {
			result.Err = err
			return result
		}
		result.Extracted = len(items)
		items = records.InWindow(items, func(h records.Homework) string { return h.Date }, keep)
		result.Kept = len(items)
		if req.DryRun {
			result.Homework = items
			return result
		}
		result.Upsert = o.sink.UpsertHomework(ctx, items)
	case records.KindSchedule:
		err := o.sessions.NavigateTo(ctx, session, webtop.DestinationSchedule)
		if err != nil {
			result.Err = err
			return result
		}
		items, err := o.extractor.ExtractSchedule(ctx, session)
		if err != nil {
			result.Err = err
			return result
		}
		result.Extracted = len(items)
		items = records.InWindow(items, func(s records.Schedule) string { return s.Date }, keep)
		result.Kept = len(items)
		if req.DryRun {
			result.Schedule = items
			return result
		}
		result.Upsert = o.sink.UpsertSchedule(ctx, items)
	default:
		result.Err = fmt.Errorf("unknown kind %q", kind)
	}
	return result
}

func (o Orchestrator) homework(ctx context.Context, session *webtop.Session, req Request) ([]records.Homework, error) {
	if req.HomeworkSource == SourceAPI {
		if o.api == nil {
			return nil, fmt.Errorf("homework source is api but no api client is configured")
		}
		err := o.api.UseSession(ctx, session)
		if err != nil {
			return nil, err
		}
		return o.api.Homework(ctx, req.Lessons, session.CreatedAt)
	}

	err := o.sessions.NavigateTo(ctx, session, webtop.DestinationHomework)
	if err != nil {
		return nil, err
	}
	return o.extractor.ExtractHomework(ctx, session)
}

func (o Orchestrator) window(window Window) func(date string) bool {
	if window != WindowDaily {
		return func(string) bool { return true }
	}
	today := chrono.Today(o.time)
	return func(date string) bool {
		return date == today
	}
}

func traceKind(kind records.Kind) trace.EventOption {
	return trace.WithAttributes(attribute.String("kind", string(kind)))
}
