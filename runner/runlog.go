package runner

import (
	"context"
	"errors"
	"time"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

const (
	RunStatusWorking  = "working"
	RunStatusOK       = "ok"
	RunStatusCanceled = "canceled"
	RunStatusFailed   = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// RunRepository keeps one entry per scrape run next to its records.
type RunRepository interface {
	CreateRun(context.Context, *RunInfo) error
	UpdateRun(context.Context, *RunInfo) error
	GetRun(context.Context, string) (RunInfo, error)
}

type RunInfo struct {
	ID        string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      RunData
}

type RunData struct {
	Areas         []string `json:"areas"`
	QueryTemplate string   `json:"query_template"`
	ResultsFile   string   `json:"results_file"`
	OK            int      `json:"ok"`
	NoResults     int      `json:"no_results"`
	Blocked       int      `json:"blocked"`
	Errored       int      `json:"errored"`
	Records       int      `json:"records"`
	Error         string   `json:"error,omitempty"`
}

func NewRunInfo(id string, cfg *Config, areas []string) RunInfo {
	return RunInfo{
		ID:        id,
		Status:    RunStatusWorking,
		CreatedAt: time.Now().UTC(),
		Data: RunData{
			Areas:         areas,
			QueryTemplate: cfg.QueryTemplate,
			ResultsFile:   cfg.ResultsFile,
		},
	}
}

func (r *RunInfo) Validate() error {
	if r.ID == "" {
		return errors.New("missing id")
	}

	if r.Status == "" {
		return errors.New("missing status")
	}

	if r.CreatedAt.IsZero() {
		return errors.New("missing date")
	}

	if len(r.Data.Areas) == 0 {
		return errors.New("missing areas")
	}

	return nil
}

// Finish records the outcome counters and the final status. A canceled
// context marks the run canceled even though partial results were kept.
func (r *RunInfo) Finish(s gmaps.Summary, err error) {
	r.Data.OK = s.Count(gmaps.OutcomeOK)
	r.Data.NoResults = s.Count(gmaps.OutcomeNoResults)
	r.Data.Blocked = s.Count(gmaps.OutcomeBlocked)
	r.Data.Errored = s.Count(gmaps.OutcomeError)
	r.Data.Records = len(s.Records)

	switch {
	case errors.Is(err, context.Canceled):
		r.Status = RunStatusCanceled
	case err != nil:
		r.Status = RunStatusFailed
		r.Data.Error = err.Error()
	default:
		r.Status = RunStatusOK
	}
}
