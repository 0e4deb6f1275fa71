package webtop

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var fullDateRegex = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})[/.](\d{4})`)
var dayMonthRegex = regexp.MustCompile(`(\d{1,2})[/.](\d{1,2})`)

func makeDate(year, month, day int) (string, error) {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return "", fmt.Errorf("invalid date %02d/%02d/%04d", day, month, year)
	}
	return date.Format(time.DateOnly), nil
}

// atoi is only used on regex groups of at most four digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseFullDate finds the first D/M/YYYY (or D.M.YYYY) in free text, like a
// card title "יום ראשון | 26/10/2025 | ד׳ חשון".
func parseFullDate(text string) (string, error) {
	groups := fullDateRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", fmt.Errorf("no date in %q", text)
	}
	return makeDate(atoi(groups[3]), atoi(groups[2]), atoi(groups[1]))
}

// weekRange is the span of years shown by the schedule header.
type weekRange struct {
	found      bool
	startMonth int
	startYear  int
	endYear    int
}

func parseWeekRange(text string) weekRange {
	matches := fullDateRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return weekRange{}
	}
	first := matches[0]
	last := matches[len(matches)-1]
	return weekRange{
		found:      true,
		startMonth: atoi(first[2]),
		startYear:  atoi(first[3]),
		endYear:    atoi(last[3]),
	}
}

// yearFor infers the year of a day/month shown without one. A week spanning
// new year assigns the start year to months from the start month on and the
// end year to the rest. Without a week range the clock's year is used.
func (w weekRange) yearFor(month int, now time.Time) int {
	if !w.found {
		return now.Year()
	}
	if w.startYear == w.endYear || month >= w.startMonth {
		return w.startYear
	}
	return w.endYear
}

// parseHeaderDate reads "D/M" (or a full date) from a day header.
func parseHeaderDate(text string, week weekRange, now time.Time) (string, error) {
	if fullDateRegex.MatchString(text) {
		return parseFullDate(text)
	}
	groups := dayMonthRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", fmt.Errorf("no day/month in %q", text)
	}
	day, month := atoi(groups[1]), atoi(groups[2])
	return makeDate(week.yearFor(month, now), month, day)
}
