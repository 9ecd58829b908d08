// Package browser opens playwright chromium sessions for the scrape engine.
package browser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

const defaultMinFreeMemory = 256 << 20

type Option func(*Launcher)

// WithHeadful shows the browser window.
func WithHeadful() Option {
	return func(l *Launcher) {
		l.headless = false
	}
}

// WithProxy routes every session through proxy.
func WithProxy(proxy *playwright.Proxy) Option {
	return func(l *Launcher) {
		l.proxy = proxy
	}
}

// WithMinFreeMemory refuses to launch when the host has less available
// memory than n bytes. Zero disables the check.
func WithMinFreeMemory(n uint64) Option {
	return func(l *Launcher) {
		l.minFree = n
	}
}

// WithSeed fixes the identity selection.
func WithSeed(seed uint64) Option {
	return func(l *Launcher) {
		l.rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
}

// WithDefaultTimeout sets the element operation timeout of new pages.
func WithDefaultTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		l.timeout = d
	}
}

// WithProfileHook is called with the identity chosen for every new session.
func WithProfileHook(fn func(Profile)) Option {
	return func(l *Launcher) {
		l.onProfile = fn
	}
}

// WithWarningHook receives failures that do not stop a session, such as an
// init script the browser refused.
func WithWarningHook(fn func(error)) Option {
	return func(l *Launcher) {
		l.onWarning = fn
	}
}

// Launcher implements gmaps.SessionOpener. The playwright driver is started
// on the first Open and stopped by Close; every Open launches a fresh
// browser process.
type Launcher struct {
	mu        sync.Mutex
	pw        *playwright.Playwright
	rnd       *rand.Rand
	headless  bool
	proxy     *playwright.Proxy
	minFree   uint64
	timeout   time.Duration
	onProfile func(Profile)
	onWarning func(error)
}

var _ gmaps.SessionOpener = (*Launcher)(nil)

func New(opts ...Option) *Launcher {
	seed := uint64(time.Now().UnixNano())

	l := Launcher{
		rnd:      rand.New(rand.NewPCG(seed, seed>>1|1)),
		headless: true,
		minFree:  defaultMinFreeMemory,
		timeout:  30 * time.Second,
	}

	for _, opt := range opts {
		opt(&l)
	}

	return &l
}

func (l *Launcher) Open(ctx context.Context) (gmaps.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := l.checkMemory(); err != nil {
		return nil, fmt.Errorf("%w: %w", gmaps.ErrDriverInit, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("%w: could not start playwright: %w", gmaps.ErrDriverInit, err)
		}

		l.pw = pw
	}

	profile := RandomProfile(l.rnd)
	if l.onProfile != nil {
		l.onProfile(profile)
	}

	b, err := l.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.headless),
		Args:     launchArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not launch browser: %w", gmaps.ErrDriverInit, err)
	}

	s := session{browser: b}

	s.bctx, err = b.NewContext(profile.contextOptions(l.proxy))
	if err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("%w: could not create browser context: %w", gmaps.ErrDriverInit, err)
	}

	installStealth(s.bctx, l.warn)

	tab, err := s.bctx.NewPage()
	if err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("%w: could not open page: %w", gmaps.ErrDriverInit, err)
	}

	s.page = newPage(tab, l.timeout)

	return &s, nil
}

// Close stops the playwright driver. Sessions must be closed first.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}

	err := l.pw.Stop()
	l.pw = nil

	return err
}

func (l *Launcher) warn(err error) {
	if l.onWarning != nil {
		l.onWarning(err)
	}
}

type initScripter interface {
	AddInitScript(script playwright.Script) error
}

// installStealth adds the anti-detection script. A failure only weakens the
// disguise, so it is reported and the session is kept.
func installStealth(bctx initScripter, warn func(error)) {
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		warn(fmt.Errorf("could not install stealth script: %w", err))
	}
}

func (l *Launcher) checkMemory() error {
	if l.minFree == 0 {
		return nil
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		// unsupported platform, launch anyway
		return nil
	}

	if vm.Available < l.minFree {
		return fmt.Errorf("only %d MiB of memory available", vm.Available>>20)
	}

	return nil
}

type session struct {
	once    sync.Once
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    *page
	err     error
}

func (s *session) Page() gmaps.Page {
	return s.page
}

func (s *session) Close() error {
	s.once.Do(func() {
		if s.bctx != nil {
			_ = s.bctx.Close()
		}

		if s.browser != nil {
			s.err = s.browser.Close()
		}
	})

	return s.err
}

// Install downloads the chromium build used by the sessions.
func Install() error {
	return playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	})
}
