// Package browser is a small page-automation surface over a headless browser.
// Everything the login flow and the extractors need from a browser goes
// through Page so that they can be driven by a fake in tests.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SelectorKind int

const (
	// ByCSS matches elements with a css selector.
	ByCSS SelectorKind = iota
	// ByText matches elements of a tag whose text contains a phrase.
	ByText
)

// Selector is one way of locating an element.
type Selector struct {
	Kind SelectorKind
	// Expr is the css selector of ByCSS.
	Expr string
	// Tag and Text are used by ByText, an empty Tag matches any element whose
	// own text contains Text.
	Tag  string
	Text string
}

func CSS(expr string) Selector {
	return Selector{Kind: ByCSS, Expr: expr}
}

func Text(tag, text string) Selector {
	return Selector{Kind: ByText, Tag: tag, Text: text}
}

func (s Selector) String() string {
	if s.Kind == ByText {
		return fmt.Sprintf("text:%s:%s", s.Tag, s.Text)
	}
	return "css:" + s.Expr
}

// XPath renders a ByText selector as an xpath expression.
func (s Selector) XPath() string {
	needle := xpathLiteral(strings.TrimSpace(s.Text))
	if s.Tag == "" {
		return fmt.Sprintf("//*[text()[contains(normalize-space(.), %s)]]", needle)
	}
	return fmt.Sprintf("//%s[contains(normalize-space(.), %s)]", s.Tag, needle)
}

func xpathLiteral(text string) string {
	if !strings.Contains(text, `"`) {
		return `"` + text + `"`
	}
	if !strings.Contains(text, `'`) {
		return `'` + text + `'`
	}
	parts := strings.Split(text, `"`)
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = `"` + part + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}

type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Page is one browser tab. Every method respects the deadline of ctx.
//
// note: fault injection point
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Count returns how many elements currently match, it does not wait.
	Count(ctx context.Context, sel Selector) (int, error)
	Click(ctx context.Context, sel Selector) error
	// Attribute returns the value of an attribute of the first match and
	// whether the attribute is present.
	Attribute(ctx context.Context, sel Selector, name string) (string, bool, error)
	RemoveAttribute(ctx context.Context, sel Selector, name string) error
	// SetValue assigns the value of an input directly and fires input/change.
	SetValue(ctx context.Context, sel Selector, value string) error
	Focus(ctx context.Context, sel Selector) error
	// TypeText simulates keystrokes into the focused element.
	TypeText(ctx context.Context, text string, delay time.Duration) error
	// WaitIdle blocks until no network request has been in flight for quiet.
	WaitIdle(ctx context.Context, quiet time.Duration) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

// Launcher starts a browser and opens a page in it.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}
