package gmaps

import (
	"context"
	"strings"

	"github.com/gosom/selfstorage-scraper/deduper"
)

var candidateSelectors = []string{
	`div[role='feed'] ` + placeLinkSelector,
	placeLinkSelector,
}

// NormalizeReference strips the trailing separators that do not change the
// place a reference points at.
func NormalizeReference(ref string) string {
	return strings.TrimRight(strings.TrimSpace(ref), "/")
}

// harvest collects at most maxResults unique, visible candidate links in DOM
// order. An empty result is not an error.
func (r *areaRun) harvest(ctx context.Context, maxResults int) []ResultCandidate {
	if r.placeView {
		if c, ok := r.singlePlace(); ok {
			r.em.info(StageHarvest, "search resolved to a single place: %s", c.DisplayName)

			return []ResultCandidate{c}
		}
	}

	dedup := deduper.New()

	var candidates []ResultCandidate

	for _, sel := range candidateSelectors {
		links, err := r.page.QueryAll(sel)
		if err != nil {
			r.em.debug(StageHarvest, "query %s failed: %v", sel, err)

			continue
		}

		for _, link := range links {
			if len(candidates) >= maxResults {
				r.em.info(StageHarvest, "harvest cap of %d reached", maxResults)

				return candidates
			}

			if !link.IsVisible() {
				continue
			}

			href, err := link.Attribute("href")
			if err != nil || !strings.Contains(href, "/maps/place/") {
				continue
			}

			label, err := link.Attribute("aria-label")
			if err != nil || strings.TrimSpace(label) == "" {
				continue
			}

			ref := NormalizeReference(href)

			if !dedup.AddIfNotExists(ctx, ref) {
				continue
			}

			candidates = append(candidates, ResultCandidate{
				Reference:   ref,
				DisplayName: strings.TrimSpace(label),
			})
		}
	}

	if len(candidates) == 0 {
		if c, ok := r.singlePlace(); ok {
			r.em.info(StageHarvest, "search resolved to a single place: %s", c.DisplayName)

			return []ResultCandidate{c}
		}
	}

	r.em.info(StageHarvest, "harvested %d candidates", len(candidates))

	return candidates
}

// singlePlace handles searches that jump straight to a detail view.
func (r *areaRun) singlePlace() (ResultCandidate, bool) {
	current := r.page.URL()
	if !strings.Contains(current, "/maps/place/") {
		return ResultCandidate{}, false
	}

	el, _, err := firstVisible(r.page, headingSelectors[:2]...)
	if err != nil {
		return ResultCandidate{}, false
	}

	name, err := el.InnerText()
	if err != nil || strings.TrimSpace(name) == "" {
		return ResultCandidate{}, false
	}

	return ResultCandidate{
		Reference:   NormalizeReference(current),
		DisplayName: strings.TrimSpace(name),
	}, true
}
