package gmaps

import (
	"context"
)

var feedSelectors = []string{
	`div[role='feed']`,
	`xpath=//div[contains(@aria-label, 'Results for')]/parent::div`,
}

var endOfListMarkers = []string{
	`xpath=//span[contains(text(), "You've reached the end of the list.")] | //p[contains(., "You've reached the end of the list.")]`,
	`xpath=//span[contains(text(), 'Keine weiteren Ergebnisse') or contains(text(), 'Aucun autre résultat')]`,
	`xpath=//div[contains(@class, 'PbZDve')]//p[contains(@class, 'fontBodyMedium')]`,
}

// stableStrikes is the number of consecutive unchanged heights that ends scrolling.
const stableStrikes = 3

// revealAll scrolls the results feed until the end marker shows, the height
// stops changing, or maxAttempts scrolls were issued. It returns the number
// of scrolls performed. Partial progress is never an error.
func (r *areaRun) revealAll(ctx context.Context, maxAttempts int) int {
	if _, err := waitForAny(ctx, r.page, r.cfg.FeedTimeout, r.cfg.PollInterval, feedSelectors...); err != nil {
		r.em.warn(StageScroll, "results feed not found, skipping scroll: %v", err)

		return 0
	}

	feed, _, err := firstVisible(r.page, feedSelectors...)
	if err != nil {
		r.em.warn(StageScroll, "results feed disappeared before scrolling")

		return 0
	}

	lastHeight, err := feed.ScrollHeight()
	if err != nil {
		lastHeight = -1
	}

	var (
		attempts int
		strikes  int
	)

	for attempts < maxAttempts {
		if ctx.Err() != nil {
			break
		}

		if r.endOfListVisible() {
			r.em.info(StageScroll, "end of list reached after %d scrolls", attempts)

			break
		}

		relocated := false

		if err := feed.ScrollToBottom(); err != nil {
			relocated = true

			feed, err = r.relocateFeed(err)
			if err != nil {
				break
			}

			if err := feed.ScrollToBottom(); err != nil {
				r.em.warn(StageScroll, "scroll failed after relocating feed: %v", err)

				break
			}

			strikes = 0
		}

		attempts++

		r.em.debug(StageScroll, "scroll %d/%d", attempts, maxAttempts)
		r.pause(ctx, r.cfg.ScrollSettle)

		height, err := feed.ScrollHeight()
		if err != nil {
			if relocated {
				r.em.warn(StageScroll, "feed lost again after relocating: %v", err)

				break
			}

			feed, err = r.relocateFeed(err)
			if err != nil {
				break
			}

			height, err = feed.ScrollHeight()
			if err != nil {
				break
			}

			strikes = 0
		}

		if height == lastHeight {
			strikes++

			if r.endOfListVisible() {
				r.em.info(StageScroll, "end of list reached after %d scrolls", attempts)

				break
			}

			if strikes >= stableStrikes {
				r.em.info(StageScroll, "feed height unchanged %d times, stopping", strikes)

				break
			}
		} else {
			strikes = 0
			lastHeight = height
		}

		if r.cfg.ScrollExtraChance > 0 && r.rnd.Float64() < r.cfg.ScrollExtraChance {
			r.pause(ctx, r.cfg.ScrollExtraPause)
		}
	}

	if attempts >= maxAttempts {
		r.em.info(StageScroll, "scroll cap of %d reached", maxAttempts)
	}

	return attempts
}

func (r *areaRun) relocateFeed(cause error) (Element, error) {
	r.em.debug(StageScroll, "feed reference lost (%v), relocating", cause)

	feed, _, err := firstVisible(r.page, feedSelectors...)
	if err != nil {
		r.em.warn(StageScroll, "could not relocate feed, stopping scroll")

		return nil, err
	}

	return feed, nil
}

func (r *areaRun) endOfListVisible() bool {
	_, _, err := firstVisible(r.page, endOfListMarkers...)

	return err == nil
}
