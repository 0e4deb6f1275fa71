package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"webtop-sync/internal/components/assert"
	"webtop-sync/internal/components/telemetry"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	report_chrome_launch = "chrome.launch"
	report_chrome_close  = "chrome.close"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

type ChromeOptions struct {
	// Headful shows the browser window, it is only useful when debugging.
	Headful bool `json:"headful"`
	// ExecPath overrides the chrome binary lookup.
	ExecPath string `json:"exec_path"`
	// RemoteURL connects to an already running browser (ex. a headless-shell
	// container) instead of starting one.
	RemoteURL string `json:"remote_url"`
	UserAgent string `json:"user_agent"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Chrome launches pages with chromedp.
type Chrome struct {
	options ChromeOptions
	tel     telemetry.API
}

func NewChrome(options ChromeOptions, tel telemetry.API) Chrome {
	assert.NotNil(tel)

	if options.UserAgent == "" {
		options.UserAgent = defaultUserAgent
	}
	if options.Width == 0 || options.Height == 0 {
		options.Width, options.Height = 1280, 800
	}
	return Chrome{
		options: options,
		tel:     telemetry.NewScopedAPI("browser", tel),
	}
}

func (c Chrome) allocator() (context.Context, context.CancelFunc) {
	if c.options.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), c.options.RemoteURL)
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !c.options.Headful),
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(c.options.UserAgent),
		chromedp.WindowSize(c.options.Width, c.options.Height),
	)
	if c.options.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.options.ExecPath))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// Launch starts the browser. The browser lives until Close is called on the
// returned page, ctx only bounds the startup.
func (c Chrome) Launch(ctx context.Context) (Page, error) {
	allocCtx, allocCancel := c.allocator()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	page := &chromePage{
		tabCtx:   tabCtx,
		closeTab: tabCancel,
		closeAll: allocCancel,
		inflight: map[network.RequestID]struct{}{},
		tel:      c.tel,
	}
	chromedp.ListenTarget(tabCtx, page.onEvent)

	// the first Run starts the browser and must use the tab context itself,
	// a derived context would kill the browser when it is cancelled.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx, network.Enable())
	}()

	select {
	case err := <-started:
		if err != nil {
			c.tel.ReportBroken(report_chrome_launch, err)
			page.Close()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	case <-ctx.Done():
		page.Close()
		return nil, fmt.Errorf("launch browser: %w", ctx.Err())
	}

	page.touch()
	return page, nil
}

type chromePage struct {
	tabCtx   context.Context
	closeTab context.CancelFunc
	closeAll context.CancelFunc
	tel      telemetry.API

	mutex        sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	closeOnce    sync.Once
}

func (p *chromePage) touch() {
	p.mutex.Lock()
	p.lastActivity = time.Now()
	p.mutex.Unlock()
}

func (p *chromePage) onEvent(ev any) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		p.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(p.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(p.inflight, ev.RequestID)
	default:
		return
	}
	p.lastActivity = time.Now()
}

// run executes actions on the tab, bounded by the deadline and cancellation
// of the caller's ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func query(sel Selector) (string, chromedp.QueryOption) {
	if sel.Kind == ByText {
		return sel.XPath(), chromedp.BySearch
	}
	return sel.Expr, chromedp.ByQuery
}

func queryAll(sel Selector) (string, chromedp.QueryOption) {
	if sel.Kind == ByText {
		return sel.XPath(), chromedp.BySearch
	}
	return sel.Expr, chromedp.ByQueryAll
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Count(ctx context.Context, sel Selector) (int, error) {
	var nodes []*cdp.Node
	expr, by := queryAll(sel)
	err := p.run(ctx, chromedp.Nodes(expr, &nodes, by, chromedp.AtLeast(0)))
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (p *chromePage) Click(ctx context.Context, sel Selector) error {
	expr, by := query(sel)
	return p.run(ctx, chromedp.Click(expr, by))
}

func (p *chromePage) Attribute(ctx context.Context, sel Selector, name string) (string, bool, error) {
	var value string
	var ok bool
	expr, by := query(sel)
	err := p.run(ctx, chromedp.AttributeValue(expr, name, &value, &ok, by))
	return value, ok, err
}

func (p *chromePage) RemoveAttribute(ctx context.Context, sel Selector, name string) error {
	expr, by := query(sel)
	return p.run(ctx, chromedp.RemoveAttribute(expr, name, by))
}

const setValueScript = `function(value) {
	this.value = value;
	this.dispatchEvent(new Event("input", { bubbles: true }));
	this.dispatchEvent(new Event("change", { bubbles: true }));
}`

func (p *chromePage) SetValue(ctx context.Context, sel Selector, value string) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var nodes []*cdp.Node
	expr, by := query(sel)
	return p.run(
		ctx,
		chromedp.Nodes(expr, &nodes, by),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("no node for %s", sel)
			}
			object, err := dom.ResolveNode().WithBackendNodeID(nodes[0].BackendNodeID).Do(ctx)
			if err != nil {
				return err
			}
			_, exception, err := runtime.CallFunctionOn(setValueScript).
				WithObjectID(object.ObjectID).
				WithArguments([]*runtime.CallArgument{{Value: encoded}}).
				Do(ctx)
			if err != nil {
				return err
			}
			if exception != nil {
				return exception
			}
			return nil
		}),
	)
}

func (p *chromePage) Focus(ctx context.Context, sel Selector) error {
	expr, by := query(sel)
	return p.run(ctx, chromedp.Focus(expr, by))
}

func (p *chromePage) TypeText(ctx context.Context, text string, delay time.Duration) error {
	actions := make([]chromedp.Action, 0, len(text)*2)
	for _, r := range text {
		actions = append(actions, chromedp.KeyEvent(string(r)))
		if delay > 0 {
			actions = append(actions, chromedp.Sleep(delay))
		}
	}
	return p.run(ctx, actions...)
}

func (p *chromePage) idle(quiet time.Duration) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.inflight) == 0 && time.Since(p.lastActivity) >= quiet
}

func (p *chromePage) WaitIdle(ctx context.Context, quiet time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.idle(quiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.tabCtx.Done():
			return p.tabCtx.Err()
		case <-ticker.C:
		}
	}
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var location string
	err := p.run(ctx, chromedp.Location(&location))
	return location, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
		}
		return nil
	}))
	return out, err
}

func (p *chromePage) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = chromedp.Cancel(p.tabCtx)
		if err != nil {
			p.tel.ReportWarning(report_chrome_close, err)
		}
		p.closeTab()
		p.closeAll()
	})
	return err
}
