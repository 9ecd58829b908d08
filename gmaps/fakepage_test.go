package gmaps

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

type dom map[string][]*fakeElement

type fakeElement struct {
	visible  bool
	text     string
	attrs    map[string]string
	children map[string]*fakeElement
	onClick  func()
	clicks   int

	heights    []int
	scrolls    int
	staleAfter int
	stale      bool
}

func visibleEl(text string, attrs ...string) *fakeElement {
	el := &fakeElement{visible: true, text: text, attrs: map[string]string{}}

	for i := 0; i+1 < len(attrs); i += 2 {
		el.attrs[attrs[i]] = attrs[i+1]
	}

	return el
}

func hiddenEl(text string) *fakeElement {
	el := visibleEl(text)
	el.visible = false

	return el
}

func (e *fakeElement) IsVisible() bool {
	return e.visible && !e.stale
}

func (e *fakeElement) InnerText() (string, error) {
	if e.stale {
		return "", ErrStaleElement
	}

	return e.text, nil
}

func (e *fakeElement) Attribute(name string) (string, error) {
	if e.stale {
		return "", ErrStaleElement
	}

	return e.attrs[name], nil
}

func (e *fakeElement) Click() error {
	if e.stale {
		return ErrStaleElement
	}

	e.clicks++

	if e.onClick != nil {
		e.onClick()
	}

	return nil
}

func (e *fakeElement) Fill(string) error {
	return nil
}

func (e *fakeElement) Query(selector string) (Element, error) {
	if child, ok := e.children[selector]; ok {
		return child, nil
	}

	return nil, ErrNotFound
}

func (e *fakeElement) ScrollToBottom() error {
	if e.stale {
		return ErrStaleElement
	}

	e.scrolls++

	if e.staleAfter > 0 && e.scrolls >= e.staleAfter {
		e.stale = true
	}

	return nil
}

func (e *fakeElement) ScrollHeight() (int, error) {
	if e.stale {
		return 0, ErrStaleElement
	}

	if len(e.heights) == 0 {
		return 0, nil
	}

	return e.heights[min(e.scrolls, len(e.heights)-1)], nil
}

// fakePage is a scripted page. Routes rebuild the DOM when their URL prefix
// is loaded.
type fakePage struct {
	url     string
	dom     dom
	content string
	routes  map[string]func(p *fakePage)
	history []string

	onEnter  func(p *fakePage)
	gotoErr  map[string]error
	backErr  error
	backNoop bool
	typed    strings.Builder
	timeout  time.Duration
	timeouts []time.Duration
	shots    []string
	visits   []string

	shotTimeouts []time.Duration
}

func newFakePage() *fakePage {
	return &fakePage{
		dom:     dom{},
		routes:  map[string]func(p *fakePage){},
		gotoErr: map[string]error{},
		timeout: 30 * time.Second,
	}
}

func (p *fakePage) route(prefix string, fn func(p *fakePage)) {
	p.routes[prefix] = fn
}

func (p *fakePage) load(u string) {
	p.url = u
	p.dom = dom{}
	p.content = ""

	keys := make([]string, 0, len(p.routes))
	for k := range p.routes {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, k := range keys {
		if strings.HasPrefix(u, k) {
			p.routes[k](p)

			return
		}
	}
}

func (p *fakePage) Goto(u string, _ time.Duration) error {
	if err := p.gotoErr[u]; err != nil {
		return err
	}

	p.visits = append(p.visits, u)

	if p.url != "" {
		p.history = append(p.history, p.url)
	}

	p.load(u)

	return nil
}

func (p *fakePage) GoBack(time.Duration) error {
	if p.backErr != nil {
		return p.backErr
	}

	if p.backNoop {
		return nil
	}

	if len(p.history) == 0 {
		return errors.New("no history")
	}

	prev := p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]

	p.load(prev)

	return nil
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) Content() (string, error) {
	return p.content, nil
}

func (p *fakePage) QueryAll(selector string) ([]Element, error) {
	els := p.dom[selector]

	ans := make([]Element, 0, len(els))
	for _, el := range els {
		ans = append(ans, el)
	}

	return ans, nil
}

func (p *fakePage) DefaultTimeout() time.Duration {
	return p.timeout
}

func (p *fakePage) SetDefaultTimeout(d time.Duration) {
	p.timeout = d
	p.timeouts = append(p.timeouts, d)
}

func (p *fakePage) Screenshot(path string) error {
	p.shots = append(p.shots, path)
	p.shotTimeouts = append(p.shotTimeouts, p.timeout)

	return nil
}

func (p *fakePage) Type(text string) error {
	p.typed.WriteString(text)

	return nil
}

func (p *fakePage) Press(key string) error {
	if key == "Enter" && p.onEnter != nil {
		p.onEnter(p)
	}

	return nil
}

type fakeSession struct {
	page   *fakePage
	closed int
}

func (s *fakeSession) Page() Page {
	return s.page
}

func (s *fakeSession) Close() error {
	s.closed++

	return nil
}

type fakeOpener struct {
	pages    func(n int) *fakePage
	err      error
	sessions []*fakeSession
}

func (o *fakeOpener) Open(context.Context) (Session, error) {
	if o.err != nil {
		return nil, o.err
	}

	s := &fakeSession{page: o.pages(len(o.sessions))}
	o.sessions = append(o.sessions, s)

	return s, nil
}

func testConfig() Config {
	cfg := DefaultConfig()

	cfg.BaseURL = "https://maps.test/maps"
	cfg.LangCode = ""
	cfg.Seed = 42

	cfg.BlockCheckTimeout = 10 * time.Millisecond
	cfg.SearchTimeout = 40 * time.Millisecond
	cfg.SearchBoxTimeout = 40 * time.Millisecond
	cfg.FeedTimeout = 40 * time.Millisecond
	cfg.NavigationTimeout = 40 * time.Millisecond
	cfg.DetailLoadTimeout = 40 * time.Millisecond
	cfg.BackTimeout = 40 * time.Millisecond
	cfg.ReloadTimeout = 40 * time.Millisecond
	cfg.HoursPanelTimeout = 20 * time.Millisecond
	cfg.PollInterval = 2 * time.Millisecond

	cfg.HomeSettle = Range{}
	cfg.ConsentSettle = Range{}
	cfg.TypingDelay = Range{}
	cfg.ResultsSettle = Range{}
	cfg.ScrollSettle = Range{}
	cfg.ScrollExtraPause = Range{}
	cfg.ScrollExtraChance = 0
	cfg.DetailSettle = Range{}
	cfg.HoursClickSettle = Range{}
	cfg.BackSettle = Range{}
	cfg.AreaPause = Range{}

	return cfg
}

func newTestRun(page *fakePage, events *[]Event) *areaRun {
	cfg := testConfig()

	var sink EventSink = NopSink
	if events != nil {
		sink = func(e Event) { *events = append(*events, e) }
	}

	s, err := New(cfg, &fakeOpener{}, WithEventSink(sink))
	if err != nil {
		panic(err)
	}

	return &areaRun{
		cfg:  &s.cfg,
		page: page,
		em:   emitter{sink: s.sink, area: "Testville"},
		rnd:  s.rnd,
		area: "Testville",
	}
}

const resultsURL = "https://maps.test/maps/search/results"

func placeRef(name string, lat, lng string) string {
	return "https://maps.test/maps/place/" + name + "/data=!4m7!3m6!1s0x0:0x1!8m2!3d" + lat + "!4d" + lng + "!16s"
}

type place struct {
	name    string
	lat     string
	lng     string
	address string
	phone   string
	site    string
	hours   []string
}

// mapsSite wires a home page, a results page listing places and one detail
// page per place.
func mapsSite(places []place) *fakePage {
	p := newFakePage()

	p.route("https://maps.test/maps", func(p *fakePage) {
		p.dom[searchBoxSelector] = []*fakeElement{visibleEl("")}
	})

	p.onEnter = func(p *fakePage) {
		p.history = append(p.history, p.url)
		p.load(resultsURL + "/@-33.8688,151.2093,12z")
	}

	p.route(resultsURL, func(p *fakePage) {
		p.dom[searchBoxSelector] = []*fakeElement{visibleEl("")}
		p.dom[resultsIndicator] = []*fakeElement{visibleEl("Results for self storage")}
		p.dom[feedSelectors[0]] = []*fakeElement{{visible: true, heights: []int{1000, 2000, 2000}}}
		p.dom[endOfListMarkers[0]] = []*fakeElement{visibleEl("You've reached the end of the list.")}

		links := make([]*fakeElement, 0, len(places))
		for _, pl := range places {
			links = append(links, visibleEl(pl.name, "href", placeRef(pl.name, pl.lat, pl.lng)+"/", "aria-label", pl.name))
		}

		p.dom[candidateSelectors[0]] = links
	})

	for _, pl := range places {
		pl := pl

		p.route("https://maps.test/maps/place/"+pl.name+"/", func(p *fakePage) {
			p.dom[searchBoxSelector] = []*fakeElement{visibleEl("")}

			if pl.address == "" && pl.phone == "" && pl.site == "" && pl.hours == nil {
				return
			}

			p.dom[headingSelectors[0]] = []*fakeElement{visibleEl(pl.name)}
			p.dom[addressSelectors[0]] = []*fakeElement{visibleEl(pl.address)}
			p.dom[phoneSelectors[0]] = []*fakeElement{visibleEl(pl.phone)}
			p.dom[websiteSelectors[0]] = []*fakeElement{visibleEl("site", "href", pl.site)}

			trigger := visibleEl("", "aria-label", "Hours")
			trigger.onClick = func() {
				p.dom[hoursPanelSelectors[0]] = []*fakeElement{visibleEl(strings.Join(pl.hours, "\n\n"))}
			}

			p.dom[hoursTriggerSelectors[0]] = []*fakeElement{trigger}
		})
	}

	return p
}
