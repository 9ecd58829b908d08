package gmaps

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

var samplePlaces = []place{
	{
		name:    "StorageA",
		lat:     "-33.8651",
		lng:     "151.2099",
		address: "1 Alpha St, Sydney NSW 2000",
		phone:   "(02) 9000 0001",
		site:    "https://www.alphastorage.com.au/",
		hours:   []string{"Monday 9 am–5 pm", "Tuesday 9 am–5 pm"},
	},
	{
		name:    "StorageB",
		lat:     "-33.9",
		lng:     "151.1",
		address: "2 Beta Rd, Mascot NSW 2020",
		phone:   "(02) 9000 0002",
		site:    "https://www.google.com/url?q=https://beta.com.au/locations&sa=U",
		hours:   []string{"Monday 8 am–6 pm"},
	},
	{
		name:    "StorageC",
		lat:     "-33.7",
		lng:     "151.05",
		address: "3 Gamma Ave, Ryde NSW 2112",
		phone:   "+61 2 9000 0003",
		site:    "https://gamma.net",
		hours:   []string{"Open 24 hours"},
	},
	{name: "StorageD", lat: "-33.6", lng: "150.9", address: "4 Delta Pl, Penrith NSW 2750", phone: "02 9000 0004", site: "https://delta.com"},
	{name: "StorageE", lat: "-33.5", lng: "150.8", address: "5 Echo Ln, Windsor NSW 2756", phone: "02 9000 0005", site: "https://echo.com"},
}

func newTestScraper(t *testing.T, cfg Config, pages func(n int) *fakePage) (*Scraper, *fakeOpener) {
	t.Helper()

	opener := &fakeOpener{pages: pages}

	s, err := New(cfg, opener)
	require.NoError(t, err)

	return s, opener
}

func requireComplete(t *testing.T, rec ExtractedRecord) {
	t.Helper()

	v := reflect.ValueOf(rec)
	for i := 0; i < v.NumField(); i++ {
		require.NotEmpty(t, v.Field(i).String(), "field %s is empty", v.Type().Field(i).Name)
	}
}

func TestRunBlockedOnLoad(t *testing.T) {
	page := mapsSite(samplePlaces)
	page.route("https://maps.test/maps", func(p *fakePage) {
		p.dom[blockIndicators[0]] = []*fakeElement{visibleEl("")}
	})

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Testville")

	require.Equal(t, OutcomeBlocked, outcome)
	require.Empty(t, records)
	require.Len(t, opener.sessions, 1)
	require.Equal(t, 1, opener.sessions[0].closed)
	require.Empty(t, page.typed.String())
}

func TestRunNoResults(t *testing.T) {
	page := mapsSite(nil)
	page.route(resultsURL, func(p *fakePage) {
		p.dom[noResultsMarker] = []*fakeElement{visibleEl("Google Maps can't find Self Storage Emptyburg Australia")}
	})

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Emptyburg")

	require.Equal(t, OutcomeNoResults, outcome)
	require.Empty(t, records)
	require.Equal(t, "Self Storage Emptyburg Australia", page.typed.String())
	require.Equal(t, 1, opener.sessions[0].closed)
}

func TestRunEmptyHarvestIsNoResults(t *testing.T) {
	page := mapsSite(nil)

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Nowhere")

	require.Equal(t, OutcomeNoResults, outcome)
	require.Empty(t, records)
}

func TestRunSearchTimeoutIsError(t *testing.T) {
	page := mapsSite(samplePlaces)
	page.route(resultsURL, func(*fakePage) {})

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Slowtown")

	require.Equal(t, OutcomeError, outcome)
	require.Empty(t, records)
}

func TestRunSearchTimeoutWithChallengeIsBlocked(t *testing.T) {
	page := mapsSite(samplePlaces)
	page.route(resultsURL, func(p *fakePage) {
		p.dom[blockIndicators[4]] = []*fakeElement{visibleEl("Unusual traffic from your computer network")}
	})

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	_, outcome := s.Run(context.Background(), "Testville")

	require.Equal(t, OutcomeBlocked, outcome)
}

func TestRunDriverInitFailure(t *testing.T) {
	opener := &fakeOpener{err: ErrDriverInit}

	s, err := New(testConfig(), opener)
	require.NoError(t, err)

	var events []Event

	WithEventSink(func(e Event) { events = append(events, e) })(s)

	records, outcome := s.Run(context.Background(), "Testville")

	require.Equal(t, OutcomeError, outcome)
	require.Empty(t, records)
	require.Equal(t, StageSession, events[0].Stage)
	require.Equal(t, SeverityError, events[0].Severity)
}

func TestRunProcessingCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxResultsToProcess = 3

	page := mapsSite(samplePlaces)

	s, opener := newTestScraper(t, cfg, func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 3)
	require.Equal(t, 1, opener.sessions[0].closed)

	for i, rec := range records {
		requireComplete(t, rec)
		require.Equal(t, "Sydney", rec.Area)
		require.Equal(t, samplePlaces[i].name, rec.CompanyName)
		require.Equal(t, samplePlaces[i].address, rec.Address)
		require.Equal(t, samplePlaces[i].phone, rec.Phone)
		require.Equal(t, samplePlaces[i].lat, rec.Latitude)
		require.Equal(t, samplePlaces[i].lng, rec.Longitude)
		require.Equal(t, NoteOK, rec.Note)
	}

	require.Equal(t, "alphastorage.com.au", records[0].WebsiteDomain)
	require.Equal(t, "beta.com.au", records[1].WebsiteDomain)
	require.Equal(t, "gamma.net", records[2].WebsiteDomain)
	require.Equal(t, "Monday 9 am–5 pm\nTuesday 9 am–5 pm", records[0].Hours)
}

func TestRunDetailTimeoutIsLoadError(t *testing.T) {
	places := append([]place(nil), samplePlaces[:3]...)
	places[1] = place{name: "StorageB", lat: "-33.9", lng: "151.1"}

	page := mapsSite(places)

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 3)

	for _, rec := range records {
		requireComplete(t, rec)
	}

	second := records[1]
	require.Equal(t, NoteLoadError, second.Note)
	require.Equal(t, LoadError, second.Address)
	require.Equal(t, LoadError, second.Phone)
	require.Equal(t, LoadError, second.WebsiteDomain)
	require.Equal(t, LoadError, second.Hours)
	require.Equal(t, LoadError, second.Latitude)
	require.Equal(t, "StorageB", second.CompanyName)

	for _, i := range []int{0, 2} {
		require.Equal(t, NoteOK, records[i].Note)
		require.Equal(t, places[i].address, records[i].Address)
		require.Equal(t, places[i].phone, records[i].Phone)
	}
}

func TestRunDetailBlocked(t *testing.T) {
	page := mapsSite(samplePlaces[:2])
	page.route("https://maps.test/maps/place/StorageA/", func(p *fakePage) {
		p.dom[blockWaitIndicators[0]] = []*fakeElement{visibleEl("")}
		p.dom[blockIndicators[0]] = []*fakeElement{visibleEl("")}
	})

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 2)
	require.Equal(t, NoteCaptchaBlocked, records[0].Note)
	require.Equal(t, Blocked, records[0].Address)
	require.Equal(t, NoteOK, records[1].Note)
}

func TestRunBackFallsBackToReload(t *testing.T) {
	page := mapsSite(samplePlaces[:2])
	page.backErr = errors.New("net::ERR_ABORTED")

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 2)
	require.Equal(t, NoteOK, records[1].Note)
}

func TestRunAbortsWhenReloadFails(t *testing.T) {
	page := mapsSite(samplePlaces[:3])
	page.backErr = errors.New("net::ERR_ABORTED")
	page.onEnter = func(p *fakePage) {
		p.history = append(p.history, p.url)
		p.load(resultsURL + "/@-33.8688,151.2093,12z")
		// after the search, the home page never renders a search box again
		p.route("https://maps.test/maps", func(*fakePage) {})
	}

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeError, outcome)
	require.Len(t, records, 1)
	requireComplete(t, records[0])
}

func TestRunCancelledKeepsRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := mapsSite(samplePlaces)
	visitedB := false
	page.route("https://maps.test/maps/place/StorageB/", func(p *fakePage) {
		visitedB = true
		p.dom[headingSelectors[0]] = []*fakeElement{visibleEl("StorageB")}

		cancel()
	})

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(ctx, "Sydney")

	require.True(t, visitedB)
	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 2)
	require.Equal(t, 1, opener.sessions[0].closed)
}

func TestRunAll(t *testing.T) {
	cfg := testConfig()
	cfg.MaxResultsToProcess = 2

	blocked := mapsSite(samplePlaces)
	blocked.route("https://maps.test/maps", func(p *fakePage) {
		p.dom[blockIndicators[0]] = []*fakeElement{visibleEl("")}
	})

	pages := []*fakePage{mapsSite(samplePlaces), blocked, mapsSite(nil)}

	s, opener := newTestScraper(t, cfg, func(n int) *fakePage { return pages[n] })

	summary := s.RunAll(context.Background(), []string{"Sydney", "Testville", "Emptyburg"})

	require.Len(t, opener.sessions, 3)
	require.Equal(t, []AreaResult{
		{Area: "Sydney", Outcome: OutcomeOK, Records: 2},
		{Area: "Testville", Outcome: OutcomeBlocked, Records: 0},
		{Area: "Emptyburg", Outcome: OutcomeNoResults, Records: 0},
	}, summary.Areas)
	require.Equal(t, 2, summary.Processed)
	require.Len(t, summary.Records, 2)
	require.Equal(t, 1, summary.Count(OutcomeOK))
	require.Equal(t, 1, summary.Count(OutcomeBlocked))

	for _, sess := range opener.sessions {
		require.Equal(t, 1, sess.closed)
	}
}

func TestRunAllCancelledBetweenAreas(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := mapsSite(samplePlaces[:1])
	first.route("https://maps.test/maps/place/StorageA/", func(p *fakePage) {
		p.dom[headingSelectors[0]] = []*fakeElement{visibleEl("StorageA")}

		cancel()
	})

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return first })

	summary := s.RunAll(ctx, []string{"Sydney", "Melbourne"})

	require.Len(t, opener.sessions, 1)
	require.Len(t, summary.Areas, 1)
	require.Len(t, summary.Records, 1)
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxResultsToHarvest = 0

	_, err := New(cfg, &fakeOpener{})
	require.Error(t, err)

	cfg = testConfig()
	cfg.QueryTemplate = "Self Storage"

	_, err = New(cfg, &fakeOpener{})
	require.Error(t, err)

	_, err = New(testConfig(), nil)
	require.Error(t, err)
}

func TestRunAllAreaHook(t *testing.T) {
	pages := []*fakePage{mapsSite(samplePlaces[:2]), mapsSite(nil)}

	var seen []AreaResult

	s, err := New(testConfig(), &fakeOpener{pages: func(n int) *fakePage { return pages[n] }},
		WithAreaHook(func(res AreaResult, records []ExtractedRecord) {
			require.Len(t, records, res.Records)

			seen = append(seen, res)
		}),
	)
	require.NoError(t, err)

	summary := s.RunAll(context.Background(), []string{"Sydney", "Emptyburg"})

	require.Equal(t, summary.Areas, seen)
}

func TestRunSearchOpensPlaceView(t *testing.T) {
	only := place{
		name:    "OnlyStorage",
		lat:     "-33.8123",
		lng:     "151.0456",
		address: "9 Solo St, Parramatta NSW 2150",
		phone:   "(02) 9000 0009",
		site:    "https://www.onlystorage.com.au/",
		hours:   []string{"Open 24 hours"},
	}

	ref := placeRef(only.name, only.lat, only.lng)

	page := mapsSite([]place{only})
	page.onEnter = func(p *fakePage) {
		p.history = append(p.history, p.url)
		p.load(ref)
	}

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Parramatta")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 1)
	requireComplete(t, records[0])
	require.Equal(t, only.name, records[0].CompanyName)
	require.Equal(t, only.address, records[0].Address)
	require.Equal(t, only.lat, records[0].Latitude)
	require.Equal(t, only.lng, records[0].Longitude)
	require.Equal(t, "onlystorage.com.au", records[0].WebsiteDomain)
	require.Equal(t, NoteOK, records[0].Note)
	require.Equal(t, []string{"https://maps.test/maps", ref}, page.visits)
	require.Equal(t, 1, opener.sessions[0].closed)
}

func TestRunCancelledDuringSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := mapsSite(samplePlaces)
	page.onEnter = func(p *fakePage) {
		cancel()

		p.history = append(p.history, p.url)
		p.load(resultsURL + "/@-33.8688,151.2093,12z")
	}

	var events []Event

	s, opener := newTestScraper(t, testConfig(), func(int) *fakePage { return page })
	WithEventSink(func(e Event) { events = append(events, e) })(s)

	records, outcome := s.Run(ctx, "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Empty(t, records)
	require.Equal(t, []string{"https://maps.test/maps"}, page.visits)
	require.Equal(t, 1, opener.sessions[0].closed)

	for _, e := range events {
		require.NotEqual(t, SeverityError, e.Severity, e.Message)
	}
}

func TestRunBackThatStaysOnDetailReloads(t *testing.T) {
	page := mapsSite(samplePlaces[:2])
	page.backNoop = true

	s, _ := newTestScraper(t, testConfig(), func(int) *fakePage { return page })

	records, outcome := s.Run(context.Background(), "Sydney")

	require.Equal(t, OutcomeOK, outcome)
	require.Len(t, records, 2)

	for _, rec := range records {
		require.Equal(t, NoteOK, rec.Note)
	}

	home := "https://maps.test/maps"
	require.Equal(t, []string{
		home,
		placeRef("StorageA", samplePlaces[0].lat, samplePlaces[0].lng),
		home,
		placeRef("StorageB", samplePlaces[1].lat, samplePlaces[1].lng),
		home,
	}, page.visits)
}
