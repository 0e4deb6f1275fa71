// Package browsertest provides an in-memory browser.Page backed by static
// html documents, used to exercise login and extraction flows without chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"webtop-sync/internal/components/browser"
	"webtop-sync/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Action is what happens when a selector is clicked.
type Action struct {
	// Navigate switches the current document.
	Navigate string
	// SetCookies adds cookies to the jar.
	SetCookies []browser.Cookie
	// Do runs arbitrary mutations.
	Do func(p *Page)
}

// Page is a fake browser.Page. Zero values of the maps are fine.
type Page struct {
	mutex sync.Mutex

	// Documents maps a url to the html served for it.
	Documents map[string]string
	// Clicks maps selector.String() to the effect of clicking it.
	Clicks map[string]Action
	// Failures maps "<Method> <selector or url>" (or just "<Method>") to an
	// error returned by that call.
	Failures map[string]error
	// AttributeHook can rewrite the result of Attribute calls.
	AttributeHook func(sel browser.Selector, name, value string, ok bool) (string, bool)
	// NavigateDelay makes Navigate block, to exercise timeouts.
	NavigateDelay time.Duration
	// IdleDelay makes WaitIdle block, the page is never idle before it.
	IdleDelay time.Duration
	// Hangs lists "<Method> <selector>" calls that block until their context
	// is done, like an element that is present but never clickable.
	Hangs map[string]bool

	current string
	cookies []browser.Cookie
	values  map[string]string
	typed   strings.Builder
	calls   []string
	closed  bool
}

func NewPage(documents map[string]string) *Page {
	return &Page{
		Documents: documents,
		Clicks:    map[string]Action{},
		Failures:  map[string]error{},
		Hangs:     map[string]bool{},
		values:    map[string]string{},
	}
}

func (p *Page) record(method, target string) error {
	p.calls = append(p.calls, method+" "+target)
	if p.closed {
		return fmt.Errorf("page closed")
	}
	if err, ok := p.Failures[method+" "+target]; ok {
		return err
	}
	if err, ok := p.Failures[method]; ok {
		return err
	}
	return nil
}

func wait(ctx context.Context, delay time.Duration) error {
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) hang(ctx context.Context, method, target string) error {
	p.mutex.Lock()
	hangs := p.Hangs[method+" "+target]
	p.mutex.Unlock()
	if !hangs {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *Page) document() (*goquery.Document, error) {
	contents, ok := p.Documents[p.current]
	if !ok {
		contents = "<html><body></body></html>"
	}
	return htmlutil.ParseDocument(context.Background(), contents)
}

func (p *Page) find(sel browser.Selector) (*goquery.Selection, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	if sel.Kind == browser.ByCSS {
		return doc.Find(sel.Expr), nil
	}

	needle := htmlutil.CleanText(sel.Text)
	tag := sel.Tag
	if tag == "" {
		tag = "*"
	}
	return doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if sel.Tag != "" {
			return strings.Contains(htmlutil.Text(s), needle)
		}
		own := s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
			return goquery.NodeName(c) == "#text"
		})
		return strings.Contains(htmlutil.Text(own), needle)
	}), nil
}

func (p *Page) first(sel browser.Selector) (*goquery.Selection, error) {
	found, err := p.find(sel)
	if err != nil {
		return nil, err
	}
	if found.Length() == 0 {
		return nil, fmt.Errorf("no node for %s", sel)
	}
	return found.First(), nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mutex.Lock()
	err := p.record("Navigate", url)
	delay := p.NavigateDelay
	p.mutex.Unlock()
	if err != nil {
		return err
	}
	if delay > 0 {
		err = wait(ctx, delay)
		if err != nil {
			return err
		}
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.current = url
	return nil
}

func (p *Page) Count(ctx context.Context, sel browser.Selector) (int, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("Count", sel.String())
	if err != nil {
		return 0, err
	}
	found, err := p.find(sel)
	if err != nil {
		return 0, err
	}
	return found.Length(), nil
}

func (p *Page) Click(ctx context.Context, sel browser.Selector) error {
	err := p.hang(ctx, "Click", sel.String())
	if err != nil {
		return err
	}

	p.mutex.Lock()
	err = p.record("Click", sel.String())
	if err == nil {
		_, err = p.first(sel)
	}
	action := p.Clicks[sel.String()]
	p.mutex.Unlock()
	if err != nil {
		return err
	}

	p.mutex.Lock()
	if action.Navigate != "" {
		p.current = action.Navigate
	}
	p.cookies = append(p.cookies, action.SetCookies...)
	p.mutex.Unlock()

	if action.Do != nil {
		action.Do(p)
	}
	return nil
}

func (p *Page) Attribute(ctx context.Context, sel browser.Selector, name string) (string, bool, error) {
	err := p.hang(ctx, "Attribute", sel.String())
	if err != nil {
		return "", false, err
	}

	p.mutex.Lock()
	err = p.record("Attribute", sel.String())
	var value string
	var ok bool
	if err == nil {
		var node *goquery.Selection
		node, err = p.first(sel)
		if err == nil {
			value, ok = node.Attr(name)
		}
	}
	hook := p.AttributeHook
	p.mutex.Unlock()
	if err != nil {
		return "", false, err
	}
	if hook != nil {
		value, ok = hook(sel, name, value, ok)
	}
	return value, ok, nil
}

func (p *Page) RemoveAttribute(ctx context.Context, sel browser.Selector, name string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("RemoveAttribute", sel.String())
	if err != nil {
		return err
	}
	_, err = p.first(sel)
	return err
}

func (p *Page) SetValue(ctx context.Context, sel browser.Selector, value string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("SetValue", sel.String())
	if err != nil {
		return err
	}
	_, err = p.first(sel)
	if err != nil {
		return err
	}
	p.values[sel.String()] = value
	return nil
}

func (p *Page) Focus(ctx context.Context, sel browser.Selector) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("Focus", sel.String())
	if err != nil {
		return err
	}
	_, err = p.first(sel)
	return err
}

func (p *Page) TypeText(ctx context.Context, text string, delay time.Duration) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("TypeText", "")
	if err != nil {
		return err
	}
	p.typed.WriteString(text)
	return nil
}

func (p *Page) WaitIdle(ctx context.Context, quiet time.Duration) error {
	p.mutex.Lock()
	err := p.record("WaitIdle", "")
	delay := p.IdleDelay
	p.mutex.Unlock()
	if err != nil || delay <= 0 {
		return err
	}
	return wait(ctx, delay)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("URL", "")
	return p.current, err
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("HTML", "")
	if err != nil {
		return "", err
	}
	return p.Documents[p.current], nil
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	err := p.record("Cookies", "")
	return append([]browser.Cookie(nil), p.cookies...), err
}

func (p *Page) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.calls = append(p.calls, "Close ")
	p.closed = true
	return nil
}

// SetDocument replaces the html of a url, typically from an Action.Do.
func (p *Page) SetDocument(url, contents string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.Documents[url] = contents
}

// SetCookies adds cookies directly to the jar.
func (p *Page) SetCookies(cookies ...browser.Cookie) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cookies = append(p.cookies, cookies...)
}

func (p *Page) Closed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closed
}

// Value returns what SetValue assigned to a selector.
func (p *Page) Value(sel browser.Selector) string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.values[sel.String()]
}

// Typed returns every keystroke sent with TypeText.
func (p *Page) Typed() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.typed.String()
}

// Calls returns "<Method> <target>" for every call made so far.
func (p *Page) Calls() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.calls...)
}

// Launcher returns the same Page from every Launch.
type Launcher struct {
	Page     *Page
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Page, error) {
	l.Launches++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Page, nil
}
