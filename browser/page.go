package browser

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

const (
	scrollToBottomJS = `el => { if (!el.isConnected) { return -1; } el.scrollTop = el.scrollHeight; return 0; }`
	scrollHeightJS   = `el => el.isConnected ? el.scrollHeight : -1`
	jsClick          = `el => el.click()`
)

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// page adapts a playwright tab to gmaps.Page.
type page struct {
	mu      sync.Mutex
	pw      playwright.Page
	timeout time.Duration
}

var _ gmaps.Page = (*page)(nil)

func newPage(pw playwright.Page, timeout time.Duration) *page {
	pw.SetDefaultTimeout(float64(timeout.Milliseconds()))

	return &page{pw: pw, timeout: timeout}
}

func (p *page) Goto(url string, timeout time.Duration) error {
	_, err := p.pw.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return navigationError(err)
	}

	return nil
}

func (p *page) GoBack(timeout time.Duration) error {
	_, err := p.pw.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return navigationError(err)
	}

	return nil
}

func (p *page) URL() string {
	return p.pw.URL()
}

func (p *page) Content() (string, error) {
	return p.pw.Content()
}

func (p *page) QueryAll(selector string) ([]gmaps.Element, error) {
	handles, err := p.pw.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}

	els := make([]gmaps.Element, 0, len(handles))
	for _, h := range handles {
		els = append(els, &element{h: h})
	}

	return els, nil
}

func (p *page) DefaultTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.timeout
}

func (p *page) SetDefaultTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()

	p.pw.SetDefaultTimeout(float64(d.Milliseconds()))
}

func (p *page) Screenshot(path string) error {
	_, err := p.pw.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})

	return err
}

func (p *page) Type(text string) error {
	return p.pw.Keyboard().Type(text)
}

func (p *page) Press(key string) error {
	return p.pw.Keyboard().Press(key)
}

// element adapts a playwright element handle to gmaps.Element.
type element struct {
	h playwright.ElementHandle
}

var _ gmaps.Element = (*element)(nil)

func (e *element) IsVisible() bool {
	ok, err := e.h.IsVisible()

	return err == nil && ok
}

func (e *element) InnerText() (string, error) {
	txt, err := e.h.InnerText()
	if err != nil {
		return "", staleError(err)
	}

	return txt, nil
}

func (e *element) Attribute(name string) (string, error) {
	v, err := e.h.GetAttribute(name)
	if err != nil {
		return "", staleError(err)
	}

	return v, nil
}

// Click tries a regular click first and falls back to a scripted click when
// an overlay intercepts the pointer.
func (e *element) Click() error {
	err := e.h.Click()
	if err == nil {
		return nil
	}

	if _, jsErr := e.h.Evaluate(jsClick); jsErr != nil {
		return fmt.Errorf("click: %w", errors.Join(staleError(err), jsErr))
	}

	return nil
}

func (e *element) Fill(value string) error {
	return staleError(e.h.Fill(value))
}

func (e *element) Query(selector string) (gmaps.Element, error) {
	h, err := e.h.QuerySelector(selector)
	if err != nil {
		return nil, staleError(err)
	}

	if h == nil {
		return nil, gmaps.ErrNotFound
	}

	return &element{h: h}, nil
}

func (e *element) ScrollToBottom() error {
	v, err := e.h.Evaluate(scrollToBottomJS)
	if err != nil {
		return staleError(err)
	}

	if n, ok := toInt(v); ok && n < 0 {
		return gmaps.ErrStaleElement
	}

	return nil
}

func (e *element) ScrollHeight() (int, error) {
	v, err := e.h.Evaluate(scrollHeightJS)
	if err != nil {
		return 0, staleError(err)
	}

	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("scrollHeight is not a number: %v", v)
	}

	if n < 0 {
		return 0, gmaps.ErrStaleElement
	}

	return n, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func staleError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if strings.Contains(msg, "not attached") || strings.Contains(msg, "detached") {
		return fmt.Errorf("%w: %w", gmaps.ErrStaleElement, err)
	}

	return err
}

func navigationError(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", gmaps.ErrLoadTimeout, err)
	}

	return fmt.Errorf("%w: %w", gmaps.ErrNavigation, err)
}
