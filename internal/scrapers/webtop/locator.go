package webtop

import (
	"context"
	"time"
	"webtop-sync/internal/components/browser"
)

// Chain is an ordered list of ways to locate the same element, earlier
// locators are preferred.
type Chain []browser.Selector

func (c Chain) names() []string {
	out := make([]string, len(c))
	for i, sel := range c {
		out[i] = sel.String()
	}
	return out
}

// present returns the first locator of the chain that currently matches.
func present(ctx context.Context, page browser.Page, chain Chain) (browser.Selector, bool) {
	for _, sel := range chain {
		count, err := page.Count(ctx, sel)
		if err == nil && count > 0 {
			return sel, true
		}
	}
	return browser.Selector{}, false
}

// waitPresent polls the chain every interval until one locator matches or
// timeout elapses.
func waitPresent(ctx context.Context, page browser.Page, chain Chain, timeout, interval time.Duration) (browser.Selector, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sel, ok := present(ctx, page, chain)
		if ok {
			return sel, true
		}
		select {
		case <-ctx.Done():
			return browser.Selector{}, false
		case <-ticker.C:
		}
	}
}

// within runs a single browser action bounded by timeout. Expiry of the
// timeout while ctx is still live becomes a StepTimeoutError.
func within(ctx context.Context, step string, timeout time.Duration, action func(ctx context.Context) error) error {
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := action(actionCtx)
	if err != nil && actionCtx.Err() != nil && ctx.Err() == nil {
		return &StepTimeoutError{Step: step, Timeout: timeout, Err: err}
	}
	return err
}

// settle waits for the network to go quiet, bounded by timeout. Reaching the
// timeout is not an error, the page is used as is.
func settle(ctx context.Context, page browser.Page, timeout, quiet time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.WaitIdle(ctx, quiet)
}
