package webtop

import (
	"time"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/components/browser/browsertest"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
)

var testClock = chrono.FixedTime{At: time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)}

func fastOptions() Options {
	options := DefaultOptions()
	options.NavigationTimeout = 200 * time.Millisecond
	options.SelectorTimeout = 200 * time.Millisecond
	options.PollInterval = 10 * time.Millisecond
	options.PollAttempts = 3
	options.IdleTimeout = 50 * time.Millisecond
	options.IdleQuiet = time.Millisecond
	options.TypeDelay = 0
	options.ReadinessTimeout = 50 * time.Millisecond
	options.SettleDelay = time.Millisecond
	return options
}

const loginPage = `<html><body>
	<div class="cookies"><button>אשר cookies </button></div>
	<button class="ministry" disabled="true">הזדהות משרד החינוך</button>
	<form>
		<input id="userName" formcontrolname="userName">
		<input formcontrolname="password" type="password" readonly>
		<button type="submit">כניסה</button>
	</form>
</body></html>`

const bareLoginPage = `<html><body>
	<form>
		<input id="userName">
		<input type="password">
		<button type="submit">כניסה</button>
	</form>
</body></html>`

var (
	submitSelector    = browser.CSS("button[type=submit]")
	passwordSelector  = browser.CSS("input[formcontrolname='password'][type='password']")
	usernameSelector  = browser.CSS("#userName")
	federatedSelector = browser.Text("button", "הזדהות משרד החינוך")
	consentSelector   = browser.Text("button", "אשר cookies")
)

// newLoginPage returns a fake portal whose submit button issues a session
// cookie and lands on the dashboard.
func newLoginPage(login string) *browsertest.Page {
	page := browsertest.NewPage(map[string]string{
		DefaultLoginURL:  login,
		DefaultDashboard: `<html><body><nav><a href="/Student_Card/11">שיעורי בית</a></nav></body></html>`,
	})
	page.Clicks[submitSelector.String()] = browsertest.Action{
		Navigate:   DefaultDashboard,
		SetCookies: []browser.Cookie{{Name: "webToken", Value: "token"}},
	}
	return page
}

func newTestManager(page *browsertest.Page, tel telemetry.API) (Manager, *browsertest.Launcher) {
	launcher := &browsertest.Launcher{Page: page}
	return NewManager(launcher, fastOptions(), testClock, tel), launcher
}

var testCreds = Credentials{Username: "student", Password: "secret"}

type loginFixture struct {
	page *browsertest.Page
}

func browserAction(url string) browsertest.Action {
	return browsertest.Action{Navigate: url}
}

func browserTextLink(text string) string {
	return browser.Text("a", text).String()
}
