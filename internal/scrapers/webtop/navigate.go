package webtop

import (
	"context"
	"fmt"
	"strings"
	"webtop-sync/internal/components/browser"
)

const (
	report_navigate_click_path = "navigate.click-path"
)

func (m Manager) open(ctx context.Context, page browser.Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, m.options.NavigationTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return &NavigationError{URL: url, Timeout: m.options.NavigationTimeout, Err: err}
	}
	m.settle(ctx, page)
	return nil
}

// NavigateTo moves an authenticated session to a destination page and checks
// that it arrived.
func (m Manager) NavigateTo(ctx context.Context, session *Session, dest Destination) error {
	route, ok := m.options.Routes[dest]
	if !ok {
		return fmt.Errorf("navigate: unknown destination %q", dest)
	}
	if session == nil || !session.Authenticated {
		return fmt.Errorf("navigate to %s: session is not authenticated", dest)
	}
	page := session.Page

	err := m.open(ctx, page, route.MenuURL)
	if err != nil {
		return err
	}

	for i, step := range route.ClickPath {
		stepName := fmt.Sprintf("%s click %d", dest, i+1)
		err := m.click(ctx, page, stepName, step)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if route.DirectURL == "" {
			return err
		}
		m.tel.ReportWarning(report_navigate_click_path, err, "falling back to", route.DirectURL)
		err = m.open(ctx, page, route.DirectURL)
		if err != nil {
			return err
		}
		break
	}

	return m.validateArrival(ctx, page, dest, route)
}

func (m Manager) click(ctx context.Context, page browser.Page, step string, chain Chain) error {
	sel, ok := waitPresent(ctx, page, chain, m.options.SelectorTimeout, m.options.PollInterval)
	if !ok {
		return &SelectorNotFoundError{Step: step, Tried: chain.names()}
	}
	err := m.within(ctx, step, func(ctx context.Context) error {
		return page.Click(ctx, sel)
	})
	if err != nil {
		return fmt.Errorf("%s: click %s: %w", step, sel, err)
	}
	m.settle(ctx, page)
	return nil
}

func (m Manager) validateArrival(ctx context.Context, page browser.Page, dest Destination, route Route) error {
	var url string
	err := m.within(ctx, string(dest), func(ctx context.Context) error {
		var err error
		url, err = page.URL(ctx)
		return err
	})
	if err != nil {
		return &NavigationValidationError{Destination: dest, Reason: fmt.Sprintf("read url: %v", err)}
	}
	if route.URLPattern != nil && !route.URLPattern.MatchString(url) {
		return &NavigationValidationError{
			Destination: dest,
			URL:         url,
			Reason:      fmt.Sprintf("url does not match %s", route.URLPattern),
		}
	}
	if len(route.Probe) == 0 {
		return nil
	}
	_, ok := waitPresent(ctx, page, route.Probe, m.options.SelectorTimeout, m.options.PollInterval)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NavigationValidationError{
			Destination: dest,
			URL:         url,
			Reason:      fmt.Sprintf("none of [%s] present", strings.Join(route.Probe.names(), ", ")),
		}
	}
	return nil
}
