package gmaps

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type ScraperOption func(*Scraper)

// WithEventSink routes progress events to sink.
func WithEventSink(sink EventSink) ScraperOption {
	return func(s *Scraper) {
		s.sink = sink
	}
}

// WithAreaHook is called by RunAll after every finished area.
func WithAreaHook(fn func(AreaResult, []ExtractedRecord)) ScraperOption {
	return func(s *Scraper) {
		s.onArea = fn
	}
}

// Scraper runs the search, scroll, harvest and detail stages for one area at
// a time on a fresh browser session.
type Scraper struct {
	cfg    Config
	opener SessionOpener
	sink   EventSink
	onArea func(AreaResult, []ExtractedRecord)
	rnd    *rand.Rand
}

func New(cfg Config, opener SessionOpener, opts ...ScraperOption) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opener == nil {
		return nil, errors.New("session opener is required")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := Scraper{
		cfg:    cfg,
		opener: opener,
		sink:   NopSink,
		rnd:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}

	for _, opt := range opts {
		opt(&s)
	}

	return &s, nil
}

type areaRun struct {
	cfg    *Config
	page   Page
	em     emitter
	rnd    *rand.Rand
	area   string
	center *LatLng

	// placeView is set when the search landed on a detail view.
	placeView bool
}

func (r *areaRun) pause(ctx context.Context, rng Range) {
	ctxWait(ctx, rng.pick(r.rnd))
}

// Run processes a single area. It never fails: problems are reported through
// the outcome, and records collected before a cancellation or an abort are
// returned.
func (s *Scraper) Run(ctx context.Context, area string) (records []ExtractedRecord, outcome StageOutcome) {
	em := emitter{sink: s.sink, area: area}

	defer func() {
		if p := recover(); p != nil {
			em.error(StageArea, "unexpected failure: %v", p)

			outcome = OutcomeError
		}

		em.info(StageArea, "finished with %s, %d records", outcome, len(records))
	}()

	session, err := s.opener.Open(ctx)
	if err != nil {
		em.error(StageSession, "could not start browser: %v", err)

		return nil, OutcomeError
	}

	defer func() {
		if err := session.Close(); err != nil {
			em.warn(StageSession, "closing browser: %v", err)
		}
	}()

	r := &areaRun{
		cfg:  &s.cfg,
		page: session.Page(),
		em:   em,
		rnd:  s.rnd,
		area: area,
	}

	// Cancellation is honoured once the search stage has settled.
	if outcome := r.search(context.WithoutCancel(ctx), s.cfg.Query(area)); outcome.Terminal() {
		return nil, outcome
	}

	if ctx.Err() != nil {
		em.warn(StageArea, "cancelled after the search, no candidates visited")

		return nil, OutcomeOK
	}

	if !r.placeView {
		r.revealAll(ctx, s.cfg.MaxScrollAttempts)
	}

	candidates := r.harvest(ctx, s.cfg.MaxResultsToHarvest)
	if len(candidates) == 0 {
		em.info(StageHarvest, "no candidates found")

		return nil, OutcomeNoResults
	}

	total := min(len(candidates), s.cfg.MaxResultsToProcess)
	outcome = OutcomeOK

	// A started candidate always runs to completion.
	detailCtx := context.WithoutCancel(ctx)

	for i, c := range candidates[:total] {
		if ctx.Err() != nil {
			em.warn(StageArea, "cancelled after %d of %d candidates", i, total)

			break
		}

		rec, err := r.extract(detailCtx, c, i+1)
		records = append(records, rec)

		if errors.Is(err, errAbortArea) {
			em.error(StageArea, "stopping area after candidate %d: %v", i+1, err)

			outcome = OutcomeError

			break
		}
	}

	return records, outcome
}

type AreaResult struct {
	Area    string
	Outcome StageOutcome
	Records int
}

type Summary struct {
	Areas     []AreaResult
	Records   []ExtractedRecord
	Processed int
	Blocked   int
	Errored   int
}

// Count returns how many areas finished with outcome o.
func (s *Summary) Count(o StageOutcome) int {
	n := 0

	for _, a := range s.Areas {
		if a.Outcome == o {
			n++
		}
	}

	return n
}

func (s *Summary) add(area string, outcome StageOutcome, records []ExtractedRecord) {
	s.Areas = append(s.Areas, AreaResult{Area: area, Outcome: outcome, Records: len(records)})
	s.Records = append(s.Records, records...)

	for i := range records {
		s.Processed++

		switch {
		case records[i].Blocked():
			s.Blocked++
		case records[i].Errored():
			s.Errored++
		}
	}
}

// RunAll processes areas one after another with a randomized pause in
// between. Cancellation is honoured between areas and the collected records
// are kept.
func (s *Scraper) RunAll(ctx context.Context, areas []string) Summary {
	var summary Summary

	for i, area := range areas {
		if ctx.Err() != nil {
			emitter{sink: s.sink, area: area}.warn(StageArea, "cancelled before area %d of %d", i+1, len(areas))

			break
		}

		records, outcome := s.Run(ctx, area)
		summary.add(area, outcome, records)

		if s.onArea != nil {
			s.onArea(summary.Areas[len(summary.Areas)-1], records)
		}

		if i < len(areas)-1 {
			ctxWait(ctx, s.cfg.AreaPause.pick(s.rnd))
		}
	}

	return summary
}
