package webtop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/components/chrono"
	"webtop-sync/internal/components/telemetry"
)

const (
	report_session_establish       = "session.establish"
	report_session_consent         = "session.consent"
	report_session_federated_login = "session.federated-login"
	report_session_enter_password  = "session.enter-password"
	report_session_settle          = "session.settle"
	report_session_close           = "session.close"
)

type Credentials struct {
	Username string
	Password string
}

// Session is an authenticated browser page. It is owned by a single run and
// must be closed by it.
type Session struct {
	Page          browser.Page
	Authenticated bool
	CreatedAt     time.Time

	tel       telemetry.API
	closeOnce sync.Once
	closeErr  error
}

// Close releases the browser, it is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.Authenticated = false
		s.closeErr = s.Page.Close()
		if s.closeErr != nil {
			s.tel.ReportWarning(report_session_close, s.closeErr)
		}
	})
	return s.closeErr
}

// Manager runs the portal login flow.
type Manager struct {
	launcher browser.Launcher
	options  Options
	time     chrono.TimeAPI
	tel      telemetry.API
}

func NewManager(launcher browser.Launcher, options Options, time chrono.TimeAPI, tel telemetry.API) Manager {
	assert.NotNil(launcher)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(options.LoginURL)
	assert.Positive("poll interval", options.PollInterval)
	assert.Positive("poll attempts", options.PollAttempts)

	return Manager{
		launcher: launcher,
		options:  options,
		time:     time,
		tel:      telemetry.NewScopedAPI("webtop", tel),
	}
}

// Establish launches a browser and logs in. On failure the browser is closed
// before returning.
func (m Manager) Establish(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("establish session: username and password are required")
	}

	page, err := m.launcher.Launch(ctx)
	if err != nil {
		m.tel.ReportBroken(report_session_establish, fmt.Errorf("launch: %w", err))
		return nil, fmt.Errorf("establish session: %w", err)
	}

	err = m.login(ctx, page, creds)
	if err != nil {
		m.tel.ReportBroken(report_session_establish, err)
		closeErr := page.Close()
		if closeErr != nil {
			m.tel.ReportWarning(report_session_close, closeErr)
		}
		return nil, err
	}

	m.tel.ReportDebug("session established", creds.Username)
	return &Session{
		Page:          page,
		Authenticated: true,
		CreatedAt:     m.time.Now(),
		tel:           m.tel,
	}, nil
}

func (m Manager) login(ctx context.Context, page browser.Page, creds Credentials) error {
	navCtx, cancel := context.WithTimeout(ctx, m.options.NavigationTimeout)
	err := page.Navigate(navCtx, m.options.LoginURL)
	cancel()
	if err != nil {
		return &NavigationError{URL: m.options.LoginURL, Timeout: m.options.NavigationTimeout, Err: err}
	}
	m.settle(ctx, page)

	m.dismissConsent(ctx, page)
	err = m.triggerFederatedLogin(ctx, page)
	if err != nil {
		return err
	}

	username, ok := waitPresent(ctx, page, m.options.Username, m.options.SelectorTimeout, m.options.PollInterval)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &SelectorNotFoundError{Step: "username", Tried: m.options.Username.names()}
	}
	err = m.within(ctx, "username", func(ctx context.Context) error {
		return page.SetValue(ctx, username, creds.Username)
	})
	if err != nil {
		return &CredentialEntryError{Attempts: []error{fmt.Errorf("fill username: %w", err)}}
	}

	err = m.enterPassword(ctx, page, creds.Password)
	if err != nil {
		return err
	}

	submit, ok := waitPresent(ctx, page, m.options.Submit, m.options.SelectorTimeout, m.options.PollInterval)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &SelectorNotFoundError{Step: "submit", Tried: m.options.Submit.names()}
	}
	err = m.within(ctx, "submit", func(ctx context.Context) error {
		return page.Click(ctx, submit)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("submit login form: %w", err)
	}
	m.settle(ctx, page)

	return m.validate(ctx, page)
}

// within bounds one action on an element that is already present.
func (m Manager) within(ctx context.Context, step string, action func(ctx context.Context) error) error {
	return within(ctx, step, m.options.SelectorTimeout, action)
}

func (m Manager) settle(ctx context.Context, page browser.Page) {
	err := settle(ctx, page, m.options.IdleTimeout, m.options.IdleQuiet)
	if err != nil {
		m.tel.ReportDebug(report_session_settle, err)
	}
}

// dismissConsent clicks the first consent button found, a missing banner is
// expected.
func (m Manager) dismissConsent(ctx context.Context, page browser.Page) {
	sel, ok := present(ctx, page, m.options.Consent)
	if !ok {
		m.tel.ReportDebug("no consent banner")
		return
	}
	err := m.within(ctx, "consent", func(ctx context.Context) error {
		return page.Click(ctx, sel)
	})
	if err != nil {
		m.tel.ReportWarning(report_session_consent, err, sel.String())
		return
	}
	m.settle(ctx, page)
}

// triggerFederatedLogin clicks the federated login button once it is
// enabled. A button that never becomes enabled is skipped.
func (m Manager) triggerFederatedLogin(ctx context.Context, page browser.Page) error {
	sel, ok := present(ctx, page, m.options.FederatedLogin)
	if !ok {
		m.tel.ReportDebug("no federated login button")
		return nil
	}

	for attempt := 0; attempt < m.options.PollAttempts; attempt++ {
		var (
			value       string
			hasDisabled bool
		)
		err := m.within(ctx, "federated login", func(ctx context.Context) error {
			var err error
			value, hasDisabled, err = page.Attribute(ctx, sel, "disabled")
			return err
		})
		if err != nil {
			m.tel.ReportWarning(report_session_federated_login, err, attempt)
		} else if !hasDisabled || value == "false" {
			err = m.within(ctx, "federated login", func(ctx context.Context) error {
				return page.Click(ctx, sel)
			})
			if err != nil {
				m.tel.ReportWarning(report_session_federated_login, fmt.Errorf("click: %w", err))
				return nil
			}
			m.settle(ctx, page)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.options.PollInterval):
		}
	}

	m.tel.ReportWarning(
		report_session_federated_login,
		fmt.Errorf("button still disabled after %d attempts", m.options.PollAttempts),
	)
	return nil
}

type passwordMethod struct {
	name  string
	enter func(ctx context.Context, page browser.Page, sel browser.Selector, password string) error
}

func (m Manager) passwordMethods() []passwordMethod {
	return []passwordMethod{
		{
			name: "assign",
			enter: func(ctx context.Context, page browser.Page, sel browser.Selector, password string) error {
				err := page.RemoveAttribute(ctx, sel, "readonly")
				if err != nil {
					return err
				}
				return page.SetValue(ctx, sel, password)
			},
		},
		{
			name: "keystrokes",
			enter: func(ctx context.Context, page browser.Page, sel browser.Selector, password string) error {
				err := page.Focus(ctx, sel)
				if err != nil {
					return err
				}
				return page.TypeText(ctx, password, m.options.TypeDelay)
			},
		},
	}
}

func (m Manager) enterPassword(ctx context.Context, page browser.Page, password string) error {
	sel, ok := waitPresent(ctx, page, m.options.Password, m.options.SelectorTimeout, m.options.PollInterval)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &SelectorNotFoundError{Step: "password", Tried: m.options.Password.names()}
	}

	var attempts []error
	for _, method := range m.passwordMethods() {
		attemptCtx, cancel := context.WithTimeout(ctx, m.options.SelectorTimeout)
		err := method.enter(attemptCtx, page, sel, password)
		cancel()
		if err == nil {
			return nil
		}
		err = fmt.Errorf("%s: %w", method.name, err)
		m.tel.ReportWarning(report_session_enter_password, err)
		attempts = append(attempts, err)
		if ctx.Err() != nil {
			break
		}
	}
	return &CredentialEntryError{Attempts: attempts}
}

func (m Manager) validate(ctx context.Context, page browser.Page) error {
	var cookies []browser.Cookie
	err := m.within(ctx, "validate", func(ctx context.Context) error {
		var err error
		cookies, err = page.Cookies(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("read session cookies: %w", err)
	}

	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	for _, expected := range m.options.SessionArtifacts {
		for _, c := range cookies {
			if c.Name == expected && c.Value != "" {
				return nil
			}
		}
	}
	return &AuthenticationError{Expected: m.options.SessionArtifacts, Present: names}
}

// IsLoginFailure reports whether err came from the login flow.
func IsLoginFailure(err error) bool {
	var nav *NavigationError
	var sel *SelectorNotFoundError
	var cred *CredentialEntryError
	var auth *AuthenticationError
	var timeout *StepTimeoutError
	return errors.As(err, &nav) ||
		errors.As(err, &sel) ||
		errors.As(err, &cred) ||
		errors.As(err, &auth) ||
		errors.As(err, &timeout)
}
