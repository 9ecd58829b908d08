package gmaps

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDriverInit   = errors.New("browser driver init failed")
	ErrBlocked      = errors.New("challenge page detected")
	ErrLoadTimeout  = errors.New("page load timeout")
	ErrNavigation   = errors.New("navigation failed")
	ErrStaleElement = errors.New("element is no longer attached to the page")
	ErrTimeout      = errors.New("wait timeout")
	ErrNotFound     = errors.New("not found")
)

// Page is the subset of a browser tab the scrape stages drive.
// Selectors follow playwright syntax, so XPath expressions need the
// "xpath=" prefix.
type Page interface {
	Goto(url string, timeout time.Duration) error
	GoBack(timeout time.Duration) error
	URL() string
	Content() (string, error)
	QueryAll(selector string) ([]Element, error)
	DefaultTimeout() time.Duration
	SetDefaultTimeout(d time.Duration)
	Screenshot(path string) error
	// Type sends text to the focused element through the keyboard.
	Type(text string) error
	Press(key string) error
}

type Element interface {
	IsVisible() bool
	InnerText() (string, error)
	Attribute(name string) (string, error)
	Click() error
	Fill(value string) error
	// Query returns the first descendant matching selector or ErrNotFound.
	Query(selector string) (Element, error)
	// ScrollToBottom and ScrollHeight return ErrStaleElement when the
	// element was detached by a re-render.
	ScrollToBottom() error
	ScrollHeight() (int, error)
}

// Session is one browser lifetime. Close must be safe to call more than once.
type Session interface {
	Page() Page
	Close() error
}

// SessionOpener starts a fresh browser session for one area.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// firstVisible returns the first visible element matching any of the selectors,
// in selector order.
func firstVisible(page Page, selectors ...string) (Element, int, error) {
	for i, sel := range selectors {
		els, err := page.QueryAll(sel)
		if err != nil {
			continue
		}

		for _, el := range els {
			if el.IsVisible() {
				return el, i, nil
			}
		}
	}

	return nil, -1, ErrNotFound
}

// waitForAny polls the page until one of the selectors has a visible match.
// It returns the index of the matching selector.
func waitForAny(ctx context.Context, page Page, timeout, poll time.Duration, selectors ...string) (int, error) {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if _, idx, err := firstVisible(page, selectors...); err == nil {
			return idx, nil
		}

		if !time.Now().Before(deadline) {
			return -1, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-ticker.C:
		}
	}
}

func ctxWait(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(dur):
	}
}
