package webtop

import (
	"regexp"
	"time"
	"webtop-sync/internal/components/browser"
)

const (
	DefaultLoginURL    = "https://webtop.smartschool.co.il/account/login"
	DefaultHomeworkURL = "https://webtop.smartschool.co.il/Student_Card/11"
	DefaultScheduleURL = "https://webtop.smartschool.co.il/Student_Card/2"
	DefaultDashboard   = "https://webtop.smartschool.co.il/dashboard"
)

// Destination is a page reachable after login.
type Destination string

const (
	DestinationHomework Destination = "homework"
	DestinationSchedule Destination = "schedule"
)

// Route describes how to reach and recognize a destination.
type Route struct {
	// MenuURL is opened before the click path.
	MenuURL string
	// ClickPath is performed in order, each step is a fallback chain.
	ClickPath []Chain
	// DirectURL is used when a click step cannot be located.
	DirectURL string
	// URLPattern must match the final url.
	URLPattern *regexp.Regexp
	// Probe must be present on the final page.
	Probe Chain
}

type Options struct {
	LoginURL string

	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	// PollInterval and PollAttempts bound the wait for the federated login
	// button to become enabled.
	PollInterval time.Duration
	PollAttempts int
	// IdleTimeout bounds every network settle, IdleQuiet is how long the
	// network must stay quiet to count as settled.
	IdleTimeout time.Duration
	IdleQuiet   time.Duration
	TypeDelay   time.Duration
	// ReadinessTimeout bounds the wait before reading a page for extraction,
	// SettleDelay is the extra quiet period on top of network idle.
	ReadinessTimeout time.Duration
	SettleDelay      time.Duration

	Consent        Chain
	FederatedLogin Chain
	Username       Chain
	Password       Chain
	Submit         Chain
	// SessionArtifacts are cookie names, at least one must exist after login.
	SessionArtifacts []string

	Routes map[Destination]Route
}

// DefaultOptions returns the selectors and timings that work against the
// production portal.
func DefaultOptions() Options {
	return Options{
		LoginURL:          DefaultLoginURL,
		NavigationTimeout: 30 * time.Second,
		SelectorTimeout:   15 * time.Second,
		PollInterval:      500 * time.Millisecond,
		PollAttempts:      10,
		IdleTimeout:       10 * time.Second,
		IdleQuiet:         500 * time.Millisecond,
		TypeDelay:         20 * time.Millisecond,
		ReadinessTimeout:  15 * time.Second,
		SettleDelay:       time.Second,

		Consent: Chain{
			browser.Text("button", "אשר cookies"),
			browser.CSS("button.cookie-consent-accept"),
			browser.Text("button", "Accept"),
		},
		FederatedLogin: Chain{
			browser.Text("button", "הזדהות משרד החינוך"),
		},
		Username: Chain{
			browser.CSS("#userName"),
			browser.CSS("input[formcontrolname='userName']"),
			browser.CSS("input[name='username']"),
		},
		Password: Chain{
			browser.CSS("input[formcontrolname='password'][type='password']"),
			browser.CSS("#password"),
			browser.CSS("input[type='password']"),
		},
		Submit: Chain{
			browser.CSS("button[type=submit]"),
			browser.Text("button", "כניסה"),
		},
		SessionArtifacts: []string{"webToken"},

		Routes: map[Destination]Route{
			DestinationHomework: {
				MenuURL: DefaultDashboard,
				ClickPath: []Chain{
					{
						browser.Text("a", "שיעורי בית"),
						browser.CSS("a[href*='Student_Card/11']"),
					},
				},
				DirectURL:  DefaultHomeworkURL,
				URLPattern: regexp.MustCompile(`(?i)/Student_Card/11\b`),
				Probe: Chain{
					browser.CSS("app-multi-cards-view"),
					browser.CSS("app-content-card"),
				},
			},
			DestinationSchedule: {
				MenuURL: DefaultDashboard,
				ClickPath: []Chain{
					{
						browser.Text("a", "מערכת שעות"),
						browser.CSS("a[href*='Student_Card/2']"),
					},
				},
				DirectURL:  DefaultScheduleURL,
				URLPattern: regexp.MustCompile(`(?i)/Student_Card/2\b`),
				Probe: Chain{
					browser.CSS(".schedule-event"),
					browser.CSS(".day-header"),
				},
			},
		},
	}
}
