package filerunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gosom/selfstorage-scraper/browser"
	"github.com/gosom/selfstorage-scraper/exporter"
	"github.com/gosom/selfstorage-scraper/gmaps"
	"github.com/gosom/selfstorage-scraper/postgres"
	"github.com/gosom/selfstorage-scraper/runner"
	"github.com/gosom/selfstorage-scraper/sqlite"
	"github.com/gosom/selfstorage-scraper/tlmt"
)

type fileRunner struct {
	cfg    *runner.Config
	areas  []string
	opener gmaps.SessionOpener
	closer io.Closer
	stores []runner.RecordStore
	tel    tlmt.Telemetry
	out    io.Writer
}

func New(ctx context.Context, cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeFile {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	proxy, err := browser.ParseProxy(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	opts := []browser.Option{
		browser.WithProxy(proxy),
		browser.WithProfileHook(func(p browser.Profile) {
			fmt.Fprintf(os.Stderr, "[SESSION] Using User-Agent: %s\n", p.UserAgent)
		}),
		browser.WithWarningHook(func(err error) {
			fmt.Fprintf(os.Stderr, "[SESSION] %v\n", err)
		}),
	}

	if cfg.Debug {
		opts = append(opts, browser.WithHeadful())
	}

	launcher := browser.New(opts...)

	tel := runner.NewTelemetry(cfg)

	ans, err := newRunner(cfg, launcher, tel, os.Stderr)
	if err != nil {
		return nil, err
	}

	ans.closer = launcher

	if err := ans.setStores(ctx); err != nil {
		_ = ans.Close(ctx)

		return nil, err
	}

	return ans, nil
}

func newRunner(cfg *runner.Config, opener gmaps.SessionOpener, tel tlmt.Telemetry, out io.Writer) (*fileRunner, error) {
	ans := &fileRunner{
		cfg:    cfg,
		opener: opener,
		tel:    tel,
		out:    out,
	}

	if err := ans.setAreas(); err != nil {
		return nil, err
	}

	return ans, nil
}

func (r *fileRunner) Run(ctx context.Context) (err error) {
	runID := uuid.NewString()
	t0 := time.Now().UTC()

	var summary gmaps.Summary

	info := runner.NewRunInfo(runID, r.cfg, r.areas)
	r.trackRun(ctx, &info, false)

	defer func() {
		finishErr := err
		if finishErr == nil {
			finishErr = ctx.Err()
		}

		info.Finish(summary, finishErr)
		r.trackRun(ctx, &info, true)

		params := map[string]any{
			"areas":      len(r.areas),
			"ok":         summary.Count(gmaps.OutcomeOK),
			"no_results": summary.Count(gmaps.OutcomeNoResults),
			"blocked":    summary.Count(gmaps.OutcomeBlocked),
			"errored":    summary.Count(gmaps.OutcomeError),
			"records":    len(summary.Records),
			"duration":   time.Now().UTC().Sub(t0).String(),
		}

		if err != nil {
			params["error"] = err.Error()
		}

		_ = r.tel.Send(context.WithoutCancel(ctx), tlmt.NewEvent("area_run", params))
	}()

	scraper, err := gmaps.New(
		r.cfg.EngineConfig(),
		r.opener,
		gmaps.WithEventSink(runner.LogSink(ctx, r.out, r.cfg.Verbose)),
		gmaps.WithAreaHook(r.persist(ctx, runID)),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "[RUN] %s: %d areas\n", runID, len(r.areas))

	summary = scraper.RunAll(ctx, r.areas)

	r.printSummary(summary)

	// records collected before a cancellation are still written
	res, err := exporter.Export(context.WithoutCancel(ctx), r.cfg.ResultsFile, summary.Records)
	if errors.Is(err, exporter.ErrNoRecords) {
		fmt.Fprintln(r.out, "[EXPORT] nothing to export")

		return nil
	}

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if res.FellBack {
		if res.Cause != nil {
			fmt.Fprintf(r.out, "[EXPORT] %s could not be written (%v), saved as csv instead\n", r.cfg.ResultsFile, res.Cause)
		} else {
			fmt.Fprintf(r.out, "[EXPORT] unsupported extension for %s, saved as csv instead\n", r.cfg.ResultsFile)
		}
	}

	fmt.Fprintf(r.out, "[EXPORT] %d rows written to %s\n", res.Rows, res.Path)

	return r.upload(context.WithoutCancel(ctx), runID, res.Path)
}

func (r *fileRunner) Close(context.Context) error {
	var errs []error

	if r.closer != nil {
		errs = append(errs, r.closer.Close())
	}

	for _, s := range r.stores {
		errs = append(errs, s.Close())
	}

	if r.tel != nil {
		errs = append(errs, r.tel.Close())
	}

	return errors.Join(errs...)
}

func (r *fileRunner) setAreas() error {
	areas := r.cfg.Areas

	if r.cfg.InputFile != "" {
		var in io.Reader

		switch r.cfg.InputFile {
		case "stdin":
			in = os.Stdin
		default:
			f, err := os.Open(r.cfg.InputFile)
			if err != nil {
				return err
			}

			defer f.Close()

			in = f
		}

		fromFile, err := runner.ReadAreas(in)
		if err != nil {
			return fmt.Errorf("reading areas: %w", err)
		}

		areas = runner.MergeAreas(areas, fromFile)
	} else {
		areas = runner.MergeAreas(areas, nil)
	}

	if len(areas) == 0 {
		return runner.ErrNoAreas
	}

	r.areas = areas

	return nil
}

func (r *fileRunner) setStores(ctx context.Context) error {
	if r.cfg.SqlitePath != "" {
		repo, err := sqlite.New(r.cfg.SqlitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite %s: %w", r.cfg.SqlitePath, err)
		}

		r.stores = append(r.stores, repo)
	}

	if r.cfg.Dsn != "" {
		repo, err := postgres.Open(ctx, r.cfg.Dsn)
		if err != nil {
			return err
		}

		r.stores = append(r.stores, repo)
	}

	return nil
}

// persist stores the records of every finished area. Store failures are
// reported and do not stop the run.
func (r *fileRunner) persist(ctx context.Context, runID string) func(gmaps.AreaResult, []gmaps.ExtractedRecord) {
	ctx = context.WithoutCancel(ctx)

	return func(res gmaps.AreaResult, records []gmaps.ExtractedRecord) {
		if len(records) == 0 {
			return
		}

		for _, s := range r.stores {
			if _, err := s.Save(ctx, runID, records); err != nil {
				fmt.Fprintf(r.out, "[STORE] [%s] saving %d records failed: %v\n", res.Area, len(records), err)
			}
		}
	}
}

// trackRun creates or updates the run entry in every store. Failures are
// reported and do not stop the run.
func (r *fileRunner) trackRun(ctx context.Context, info *runner.RunInfo, update bool) {
	ctx = context.WithoutCancel(ctx)

	for _, s := range r.stores {
		var err error

		if update {
			err = s.UpdateRun(ctx, info)
		} else {
			err = s.CreateRun(ctx, info)
		}

		if err != nil {
			fmt.Fprintf(r.out, "[STORE] run %s: %v\n", info.ID, err)
		}
	}
}

func (r *fileRunner) upload(ctx context.Context, runID, path string) error {
	if r.cfg.S3Bucket == "" {
		return nil
	}

	if r.cfg.S3Uploader == nil {
		fmt.Fprintln(r.out, "[UPLOAD] s3 bucket given but AWS credentials are missing, skipping upload")

		return nil
	}

	key, err := r.cfg.S3Uploader.UploadFile(ctx, r.cfg.S3Bucket, runID, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "[UPLOAD] s3://%s/%s\n", r.cfg.S3Bucket, key)

	return nil
}

func (r *fileRunner) printSummary(s gmaps.Summary) {
	fmt.Fprintf(r.out, "[SUMMARY] areas: %d (ok %d, no results %d, blocked %d, error %d)\n",
		len(s.Areas),
		s.Count(gmaps.OutcomeOK),
		s.Count(gmaps.OutcomeNoResults),
		s.Count(gmaps.OutcomeBlocked),
		s.Count(gmaps.OutcomeError),
	)

	fmt.Fprintf(r.out, "[SUMMARY] records: %d (blocked %d, errors %d)\n", s.Processed, s.Blocked, s.Errored)

	if len(s.Areas) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Area", "Outcome", "Records"})

	for _, a := range s.Areas {
		t.AppendRow(table.Row{a.Area, string(a.Outcome), a.Records})
	}

	t.AppendFooter(table.Row{"", "Total", len(s.Records)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
