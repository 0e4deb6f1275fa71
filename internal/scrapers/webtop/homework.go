package webtop

import (
	"context"
	"strings"
	"time"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"
	"webtop-sync/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_homework_card = "parse-homework.card"
	report_parse_homework_row  = "parse-homework.row"
)

// shown by the portal when a teacher left the homework field empty
const homeworkNotEntered = "לא הוזן"

const (
	topicPrefix    = "נושא שיעור:"
	homeworkPrefix = "שיעורי בית:"
)

func cleanHomework(text string) string {
	text = htmlutil.CleanText(text)
	if text == homeworkNotEntered {
		return ""
	}
	return text
}

// ParseHomework reads homework records from the html of the homework page.
//
// The history layout groups lesson rows under one card per day. When no day
// card is present the single-day dashboard layout is read instead, dated with
// the clock's current day.
func ParseHomework(
	ctx context.Context,
	html, source string,
	extractedAt time.Time,
	clock chrono.TimeAPI,
	tel telemetry.API,
) ([]records.Homework, error) {
	doc, err := htmlutil.ParseDocument(ctx, html)
	if err != nil {
		return nil, err
	}

	cards := doc.Find("app-content-card mat-card")
	if cards.Length() == 0 {
		return parseDailyHomework(doc, chrono.Today(clock), source, extractedAt), nil
	}

	items := []records.Homework{}
	cards.Each(func(_ int, card *goquery.Selection) {
		title := htmlutil.Text(card.Find("mat-card-title .card-title").First())
		if title == "" {
			tel.ReportWarning(report_parse_homework_card, "day card without a title")
			return
		}
		date, err := parseFullDate(title)
		if err != nil {
			tel.ReportWarning(report_parse_homework_card, err)
			return
		}

		card.Find(".lesson-wrpper").Each(func(_ int, wrapper *goquery.Selection) {
			row := wrapper.Find("div[role='row']").First()
			if row.Length() == 0 {
				return
			}
			item, ok := parseHomeworkRow(row, date, tel)
			if !ok {
				return
			}
			item.Source = source
			item.ExtractedAt = extractedAt
			items = append(items, item)
		})
	})
	return items, nil
}

func parseHomeworkRow(row *goquery.Selection, date string, tel telemetry.API) (records.Homework, bool) {
	cells := row.Find("span[role='cell']")
	if cells.Length() < 6 {
		tel.ReportWarning(report_parse_homework_row, "too few cells", date, cells.Length())
		return records.Homework{}, false
	}

	hour := htmlutil.Text(cells.Eq(0))
	subject := htmlutil.Text(cells.Eq(1).Find("a.link-text").First())
	if subject == "" {
		return records.Homework{}, false
	}
	teacher := htmlutil.Text(cells.Eq(2))
	status := htmlutil.Text(cells.Eq(3))
	topic := strings.TrimSpace(strings.TrimPrefix(htmlutil.Text(cells.Eq(4)), topicPrefix))

	homeworkCell := cells.Eq(5)
	homework := ""
	if span := homeworkCell.Find("span.font-small").First(); span.Length() > 0 {
		homework = htmlutil.Text(span)
	} else {
		text := htmlutil.Text(homeworkCell)
		if strings.Contains(text, homeworkPrefix) {
			homework = strings.TrimSpace(strings.Replace(text, homeworkPrefix, "", 1))
		}
	}
	homework = cleanHomework(homework)
	if homework == "" {
		return records.Homework{}, false
	}

	return records.Homework{
		Date:             date,
		Hour:             hour,
		Subject:          subject,
		Teacher:          teacher,
		Status:           status,
		Description:      describeLesson(hour, subject, teacher, status, topic),
		HomeworkText:     homework,
		ClassDescription: topic,
	}, true
}

func describeLesson(hour, subject, teacher, status, topic string) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+value)
		}
	}
	add("", hour)
	add("מקצוע: ", subject)
	add("מורה: ", teacher)
	add("סטטוס: ", status)
	add("נושא: ", topic)
	return strings.Join(lines, "\n")
}

// labelled returns the text that follows a bold label like "מורה:" inside sel.
func labelled(sel *goquery.Selection, label string) string {
	var out string
	sel.Find("b, strong").Not(".event-title, .title").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if !strings.Contains(htmlutil.Text(b), label) {
			return true
		}
		out = strings.TrimLeft(htmlutil.NextText(b.Nodes[0]), ": ")
		return false
	})
	return out
}

func parseDailyHomework(doc *goquery.Document, date, source string, extractedAt time.Time) []records.Homework {
	items := []records.Homework{}
	doc.Find("mat-card-content .card-content-row").Each(func(_ int, row *goquery.Selection) {
		subject := htmlutil.Text(row.Find("a.link-text").First())
		if subject == "" {
			return
		}
		homework := cleanHomework(labelled(row, homeworkPrefix))
		if homework == "" {
			return
		}
		topic := labelled(row, topicPrefix)

		items = append(items, records.Homework{
			Date:             date,
			Subject:          subject,
			Description:      describeLesson("", subject, "", "", topic),
			HomeworkText:     homework,
			ClassDescription: topic,
			Source:           source,
			ExtractedAt:      extractedAt,
		})
	})
	return items
}
