package gmaps

import (
	"context"
	"net/url"
	"strings"
)

const (
	searchBoxSelector = `#searchboxinput`
	resultsIndicator  = `xpath=//div[contains(@aria-label, 'Results for')]`
	noResultsMarker   = `xpath=//div[contains(@class, 'fontBodyMedium') and (contains(., 'No results found') or contains(., 'did not match any locations'))] | //div[contains(text(), "Google Maps can't find")]`
	placeLinkSelector = `a[aria-label][href*='/maps/place/']`
)

var consentButtons = []string{
	`form[action="https://consent.google.com/save"]:first-of-type button`,
	`xpath=//button[.//span[contains(text(), 'Accept all') or contains(text(), 'Reject all') or contains(text(), 'I agree')]]`,
	`xpath=//button[contains(@aria-label, 'Accept all') or contains(@aria-label, 'Reject all') or contains(@aria-label, 'Agree')]`,
	`xpath=//form[contains(@action, 'consent')]//button[span]`,
}

var acceptLabels = []string{"accept all", "i agree", "agree"}

// search runs the query for the area and classifies the result surface.
func (r *areaRun) search(ctx context.Context, query string) StageOutcome {
	home := r.homeURL()

	r.em.info(StageSearch, "opening %s", home)

	if err := r.page.Goto(home, r.cfg.NavigationTimeout); err != nil {
		r.em.error(StageSearch, "could not open maps: %v", err)

		return OutcomeError
	}

	r.pause(ctx, r.cfg.HomeSettle)

	if blocked, _ := r.detectBlock("initial load"); blocked {
		return OutcomeBlocked
	}

	r.dismissConsent(ctx)

	if _, err := waitForAny(ctx, r.page, r.cfg.SearchBoxTimeout, r.cfg.PollInterval, searchBoxSelector); err != nil {
		if blocked, _ := r.detectBlock("search box"); blocked {
			return OutcomeBlocked
		}

		r.em.error(StageSearch, "search box not available: %v", err)

		return OutcomeError
	}

	if err := r.typeQuery(ctx, query); err != nil {
		r.em.error(StageSearch, "could not submit query: %v", err)

		return OutcomeError
	}

	r.em.info(StageSearch, "searched for %q", query)

	// A query matching exactly one place opens its detail view instead of a
	// results list.
	matched, err := waitForAny(ctx, r.page, r.cfg.SearchTimeout, r.cfg.PollInterval,
		resultsIndicator,
		noResultsMarker,
		placeLinkSelector,
		headingSelectors[0],
	)
	if err != nil {
		if blocked, _ := r.detectBlock("search timeout"); blocked {
			return OutcomeBlocked
		}

		r.em.error(StageSearch, "no result surface after %s: %v", r.cfg.SearchTimeout, err)

		return OutcomeError
	}

	r.pause(ctx, r.cfg.ResultsSettle)

	if blocked, _ := r.detectBlock("after search"); blocked {
		return OutcomeBlocked
	}

	if _, _, err := firstVisible(r.page, noResultsMarker); err == nil {
		r.em.info(StageSearch, "no results for %q", query)

		return OutcomeNoResults
	}

	if matched == 3 || strings.Contains(r.page.URL(), "/maps/place/") {
		r.placeView = true

		r.em.info(StageSearch, "search opened a place view")
	}

	if center, ok := parseAtCoordinates(r.page.URL()); ok {
		r.center = &center
	}

	return OutcomeOK
}

func (r *areaRun) homeURL() string {
	u := r.cfg.BaseURL

	if r.cfg.LangCode == "" {
		return u
	}

	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}

	return u + sep + "hl=" + url.QueryEscape(r.cfg.LangCode)
}

// dismissConsent clicks an accept-like consent button when one is shown.
// A missing dialog is the normal case.
func (r *areaRun) dismissConsent(ctx context.Context) {
	for _, sel := range consentButtons {
		buttons, err := r.page.QueryAll(sel)
		if err != nil {
			continue
		}

		for _, b := range buttons {
			if !b.IsVisible() || !isAcceptButton(b) {
				continue
			}

			if err := b.Click(); err != nil {
				r.em.debug(StageSearch, "consent click failed: %v", err)

				continue
			}

			r.em.info(StageSearch, "consent dialog accepted")
			r.pause(ctx, r.cfg.ConsentSettle)

			return
		}
	}

	r.em.debug(StageSearch, "no consent dialog")
}

func isAcceptButton(el Element) bool {
	text, _ := el.InnerText()
	label, _ := el.Attribute("aria-label")

	haystack := strings.ToLower(text + " " + label)

	for _, l := range acceptLabels {
		if strings.Contains(haystack, l) {
			return true
		}
	}

	return false
}

func (r *areaRun) typeQuery(ctx context.Context, query string) error {
	box, _, err := firstVisible(r.page, searchBoxSelector)
	if err != nil {
		return err
	}

	if err := box.Click(); err != nil {
		return err
	}

	if err := box.Fill(""); err != nil {
		return err
	}

	for _, ch := range query {
		if err := r.page.Type(string(ch)); err != nil {
			return err
		}

		r.pause(ctx, r.cfg.TypingDelay)
	}

	return r.page.Press("Enter")
}
