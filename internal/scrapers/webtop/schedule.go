package webtop

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"
	"webtop-sync/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_schedule_header = "parse-schedule.header"
	report_parse_schedule_event  = "parse-schedule.event"
)

// event ids end with "<hour index>_<date index>", ex. "lesson-3_1"
var eventIdRegex = regexp.MustCompile(`(\d+)[_-](\d+)$`)

var (
	teacherLabels     = []string{"מורה"}
	descriptionLabels = []string{"נושא", "תיאור"}
	commentLabels     = []string{"הערות", "הערה"}
)

type scheduleDay struct {
	date    string
	dayName string
}

// ParseSchedule reads class slots from the html of the weekly schedule page.
func ParseSchedule(
	ctx context.Context,
	html, source string,
	extractedAt time.Time,
	clock chrono.TimeAPI,
	tel telemetry.API,
) ([]records.Schedule, error) {
	doc, err := htmlutil.ParseDocument(ctx, html)
	if err != nil {
		return nil, err
	}

	week := parseWeekRange(htmlutil.Text(doc.Find(".week-range").First()))
	days := parseScheduleDays(doc, week, clock.Now(), tel)

	items := []records.Schedule{}
	doc.Find(".schedule-event").Each(func(_ int, event *goquery.Selection) {
		id := event.AttrOr("id", "")
		if id == "" {
			id = event.AttrOr("data-id", "")
		}
		hourIndex, dateIndex, err := parseEventId(id)
		if err != nil {
			tel.ReportWarning(report_parse_schedule_event, err)
			return
		}
		day, ok := days[dateIndex]
		if !ok {
			tel.ReportWarning(report_parse_schedule_event, fmt.Errorf("no header for date index %d", dateIndex), id)
			return
		}

		items = append(items, records.Schedule{
			Date:             day.date,
			ClassNumber:      hourIndex + 1,
			Teacher:          labelledAny(event, teacherLabels),
			Subject:          eventSubject(event),
			ClassDescription: labelledAny(event, descriptionLabels),
			ClassComments:    labelledAny(event, commentLabels),
			DayName:          day.dayName,
			Source:           source,
			ExtractedAt:      extractedAt,
		})
	})
	return items, nil
}

func parseScheduleDays(doc *goquery.Document, week weekRange, now time.Time, tel telemetry.API) map[int]scheduleDay {
	days := map[int]scheduleDay{}
	doc.Find(".day-header").Each(func(position int, header *goquery.Selection) {
		index := position
		if raw, ok := header.Attr("data-index"); ok {
			parsed, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				tel.ReportWarning(report_parse_schedule_header, err, raw)
				return
			}
			index = parsed
		}

		text := htmlutil.Text(header)
		date, err := parseHeaderDate(text, week, now)
		if err != nil {
			tel.ReportWarning(report_parse_schedule_header, err)
			return
		}
		days[index] = scheduleDay{date: date, dayName: dayName(text)}
	})
	return days
}

func parseEventId(id string) (hourIndex, dateIndex int, err error) {
	groups := eventIdRegex.FindStringSubmatch(strings.TrimSpace(id))
	if groups == nil {
		return 0, 0, fmt.Errorf("unparseable event id %q", id)
	}
	hourIndex, err = strconv.Atoi(groups[1])
	if err != nil {
		return 0, 0, fmt.Errorf("event id %q: hour index: %w", id, err)
	}
	dateIndex, err = strconv.Atoi(groups[2])
	if err != nil {
		return 0, 0, fmt.Errorf("event id %q: date index: %w", id, err)
	}
	return hourIndex, dateIndex, nil
}

func dayName(header string) string {
	name := fullDateRegex.ReplaceAllString(header, "")
	name = dayMonthRegex.ReplaceAllString(name, "")
	name = strings.Trim(name, " |,-")
	name = strings.TrimPrefix(name, "יום ")
	return htmlutil.CleanText(name)
}

func isLabel(text string) bool {
	return strings.HasSuffix(text, ":")
}

// eventSubject is the title of an event, either an explicit title element or
// the first bold node that is not a field label.
func eventSubject(event *goquery.Selection) string {
	title := htmlutil.Text(event.Find(".event-title, .title").First())
	if title != "" {
		return title
	}
	var subject string
	event.Find("b, strong").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		text := htmlutil.Text(b)
		if text == "" || isLabel(text) {
			return true
		}
		subject = text
		return false
	})
	if subject == "" {
		subject = htmlutil.CleanText(event.AttrOr("title", ""))
	}
	return subject
}

func labelledAny(event *goquery.Selection, labels []string) string {
	for _, label := range labels {
		value := labelled(event, label)
		if value != "" {
			return value
		}
	}
	return ""
}
