package webtop

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
	"webtop-sync/internal/records"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_api_lessons = "api.lessons"
)

const DefaultAPIBaseURL = "https://webtopserver.smartschool.co.il"

const lessonsEndpoint = "/server/api/PupilCard/GetPupilLessonsAndHomework"

// LessonsRequest is the body of the lessons endpoint, the student specific
// ids come from the portal's own requests.
type LessonsRequest struct {
	WeekIndex     int    `json:"weekIndex"`
	ViewType      int    `json:"viewType"`
	StudyYear     int    `json:"studyYear"`
	StudyYearName string `json:"studyYearName,omitempty"`
	StudentID     string `json:"studentID"`
	ClassCode     int    `json:"classCode"`
	PeriodID      int    `json:"periodID"`
	ModuleID      int    `json:"moduleID"`
}

type lessonsResponse struct {
	Status bool        `json:"status"`
	Data   []lessonDay `json:"data"`
}

type lessonDay struct {
	Date      string       `json:"date"`
	DayIndex  int          `json:"dayIndex"`
	HoursData []lessonHour `json:"hoursData"`
}

type lessonHour struct {
	Hour int `json:"hour"`
	// sic
	Schedule []lessonEntry `json:"scheduale"`
}

type lessonEntry struct {
	HomeWork    string `json:"homeWork"`
	SubjectName string `json:"subject_name"`
	Teacher     string `json:"teacher"`
	DescClass   string `json:"descClass"`
}

// APIClient reads homework from the portal's json api using the cookies of a
// browser session.
type APIClient struct {
	baseUrl *url.URL
	http    *resty.Client
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewAPIClient(baseUrl string, clock chrono.TimeAPI, tel telemetry.API) (*APIClient, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("webtop", tel)

	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", defaultAPIUserAgent)
	client.SetHeader("accept", "application/json, text/plain, */*")
	client.SetHeader("language", "he")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	limiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	return &APIClient{
		baseUrl: parsedBaseUrl,
		http:    client,
		time:    clock,
		tel:     tel,
	}, nil
}

const defaultAPIUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// UseSession copies the browser session's cookies into the client.
func (c *APIClient) UseSession(ctx context.Context, session *Session) error {
	cookies, err := session.Page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("read browser cookies: %w", err)
	}
	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	c.http.GetClient().Jar.SetCookies(c.baseUrl, jarCookies)
	return nil
}

// Homework fetches one week of lessons and returns the ones with homework.
func (c *APIClient) Homework(ctx context.Context, req LessonsRequest, extractedAt time.Time) ([]records.Homework, error) {
	var body lessonsResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post(lessonsEndpoint)
	if err != nil {
		c.tel.ReportBroken(report_api_lessons, fmt.Errorf("fetch: %w", err))
		return nil, &ExtractionError{Kind: "homework api", Err: err}
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status %s", res.Status())
		c.tel.ReportBroken(report_api_lessons, err)
		return nil, &ExtractionError{Kind: "homework api", Err: err}
	}
	if !body.Status {
		err := fmt.Errorf("response status is false")
		c.tel.ReportWarning(report_api_lessons, err)
		return nil, &ExtractionError{Kind: "homework api", Err: err}
	}
	return homeworkFromLessons(body.Data, chrono.Today(c.time), lessonsEndpoint, extractedAt), nil
}

func homeworkFromLessons(days []lessonDay, today, source string, extractedAt time.Time) []records.Homework {
	items := []records.Homework{}
	for _, day := range days {
		date := today
		if len(day.Date) >= 10 {
			date = day.Date[:10]
		}
		for _, hour := range day.HoursData {
			for _, entry := range hour.Schedule {
				homework := cleanHomework(entry.HomeWork)
				if homework == "" {
					continue
				}
				hourLabel := ""
				if hour.Hour > 0 {
					hourLabel = fmt.Sprintf("שיעור %d", hour.Hour)
				}
				subject := strings.TrimSpace(entry.SubjectName)
				teacher := strings.TrimSpace(entry.Teacher)
				topic := strings.TrimSpace(entry.DescClass)
				items = append(items, records.Homework{
					Date:             date,
					Hour:             hourLabel,
					Subject:          subject,
					Teacher:          teacher,
					Description:      describeLesson(hourLabel, subject, teacher, "", topic),
					HomeworkText:     homework,
					ClassDescription: topic,
					Source:           source,
					ExtractedAt:      extractedAt,
				})
			}
		}
	}
	return items
}
