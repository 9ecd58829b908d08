package gmaps

import (
	"context"
	"errors"
	"fmt"
)

var blockWaitIndicators = []string{
	`iframe[src*='recaptcha']`,
	`xpath=//div[contains(text(), 'verify that you are not a robot')]`,
}

// backIndicators mark the results surface after a reverse navigation. The
// search box is left out since detail views render it too.
var backIndicators = append(append([]string{}, feedSelectors...), resultsIndicator)

// errAbortArea is returned when the results surface cannot be recovered.
var errAbortArea = errors.New("results surface lost")

// extract visits one candidate and always returns a complete record. The
// error is non-nil only when navigating away from the detail view failed
// beyond recovery, in which case the area must stop.
func (r *areaRun) extract(ctx context.Context, c ResultCandidate, idx int) (rec ExtractedRecord, err error) {
	rec = newRecord(r.area, c)

	defer func() {
		if p := recover(); p != nil {
			r.em.error(StageDetail, "candidate %d (%s) failed: %v", idx, c.DisplayName, p)

			rec = newRecord(r.area, c)
			rec.fill(ExtractionError, NoteProcessingError)
		}

		rec.ensureComplete()

		if navErr := r.navigateBack(ctx); navErr != nil {
			err = navErr
		}
	}()

	r.visit(ctx, c, idx, &rec)

	return rec, nil
}

func (r *areaRun) visit(ctx context.Context, c ResultCandidate, idx int, rec *ExtractedRecord) {
	label := fmt.Sprintf("detail %d", idx)

	r.em.info(StageDetail, "visiting %d: %s", idx, c.DisplayName)

	if err := r.page.Goto(c.Reference, r.cfg.NavigationTimeout); err != nil {
		r.em.warn(StageDetail, "navigation to %s failed: %v", c.Reference, err)
		r.classifyLoadFailure(label, rec)

		return
	}

	indicators := append(append([]string{}, headingSelectors...), blockWaitIndicators...)

	matched, err := waitForAny(ctx, r.page, r.cfg.DetailLoadTimeout, r.cfg.PollInterval, indicators...)
	if err != nil {
		r.em.warn(StageDetail, "detail %d did not load: %v", idx, err)
		r.classifyLoadFailure(label+" timeout", rec)

		return
	}

	if matched < len(headingSelectors) {
		r.pause(ctx, r.cfg.DetailSettle)
	}

	if blocked, _ := r.detectBlock(label); blocked {
		rec.fill(Blocked, NoteCaptchaBlocked)

		return
	}

	r.extractFields(ctx, c, rec)
}

// classifyLoadFailure decides between a blocked and a load-error record
// after a failed or timed-out load.
func (r *areaRun) classifyLoadFailure(label string, rec *ExtractedRecord) {
	if blocked, _ := r.detectBlock(label); blocked {
		rec.fill(Blocked, NoteCaptchaBlocked)

		return
	}

	rec.fill(LoadError, NoteLoadError)
}

func (r *areaRun) extractFields(ctx context.Context, c ResultCandidate, rec *ExtractedRecord) {
	rec.Latitude, rec.Longitude = r.extractCoordinates(c.Reference)
	rec.CompanyName = extractName(r.page, c.DisplayName)
	rec.Address = fieldValue(cascade(r.page, addressStrategies()...))
	rec.Phone = fieldValue(cascade(r.page, phoneStrategies()...))
	rec.WebsiteDomain = extractWebsite(r.page)
	rec.Hours = r.extractHours(ctx)

	r.em.debug(StageDetail, "extracted %s (website %s, lat %s, lng %s)",
		rec.CompanyName, rec.WebsiteDomain, rec.Latitude, rec.Longitude)
}

// navigateBack returns to the results surface. A failed reverse navigation
// falls back to reloading the base surface, which loses scroll progress.
func (r *areaRun) navigateBack(ctx context.Context) error {
	indicators := backIndicators
	if r.placeView {
		indicators = headingSelectors[:1]
	}

	err := r.page.GoBack(r.cfg.BackTimeout)
	if err == nil {
		_, err = waitForAny(ctx, r.page, r.cfg.BackTimeout, r.cfg.PollInterval, indicators...)
	}

	if err == nil {
		r.pause(ctx, r.cfg.BackSettle)

		return nil
	}

	r.em.warn(StageNavigate, "going back failed (%v), reloading %s; scroll progress is lost", err, r.cfg.BaseURL)

	if err := r.page.Goto(r.homeURL(), r.cfg.ReloadTimeout); err != nil {
		r.em.error(StageNavigate, "reload failed: %v", err)

		return fmt.Errorf("%w: %w", errAbortArea, err)
	}

	if _, err := waitForAny(ctx, r.page, r.cfg.ReloadTimeout, r.cfg.PollInterval, searchBoxSelector); err != nil {
		r.em.error(StageNavigate, "search surface did not come back: %v", err)

		return fmt.Errorf("%w: %w", errAbortArea, ErrNavigation)
	}

	return nil
}
