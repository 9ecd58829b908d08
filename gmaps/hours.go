package gmaps

import (
	"context"
	"regexp"
	"strings"
)

var (
	hoursSummarySelector = `xpath=//div[contains(@class, 'Io6YTe')]//span[contains(., 'Open') or contains(., 'Closed') or contains(., 'Opens') or contains(., 'Closes')] | //span[@class='ZDu9vd' or contains(@class, 'state')]`

	hoursTriggerSelectors = []string{
		`xpath=(//button[contains(@aria-label, 'Hour') and not(contains(@aria-label, 'Hide')) and not(contains(@aria-label, 'Collapse'))] | //div[@role='button' and contains(@aria-label, 'Hour') and not(contains(@aria-label, 'Hide')) and not(contains(@aria-label, 'Collapse'))])[1]`,
		`button[data-item-id^='oh']`,
		`xpath=//button[contains(@class, 'AeaXub')]`,
		`xpath=//div[contains(@class, 'AeaXub')][@role='button']`,
		`div.OMl5r[role='button']`,
		`xpath=//div[.//span[contains(@class, 'google-symbols') and (contains(text(), 'schedule') or contains(text(), 'access_time'))]][@role='button']`,
	}

	hoursPanelSelectors = []string{
		`xpath=//table[contains(@class, 'eK4R0e')] | //table[contains(@class, 'WgFkxc')]`,
		`xpath=//div[contains(@class, 't39EBf')]//table`,
		`xpath=//table[contains(@aria-label, 'Opening hours')]`,
		`xpath=//div[contains(@class, 'm6QErb')]//table`,
	}
)

var (
	lineSpace        = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankRuns        = regexp.MustCompile(`\n{2,}`)
	copyBoilerplate  = regexp.MustCompile(`(?i)copy opening hours`)
	suggestTail      = regexp.MustCompile(`(?is)(suggest new hours|suggest an edit).*`)
	hoursHeading     = regexp.MustCompile(`(?i)(^hours\n)|(\nhours$)`)
	ariaLabelNoise   = regexp.MustCompile(`aria-label="[^"]+"\s*`)
	hoursLabelPrefix = regexp.MustCompile(`(?i)(?:hide|expand|show) open hours for the week\s*[:.-]?\s*`)
	hoursWordPrefix  = regexp.MustCompile(`(?i)^hours\s*[:-]?\s*`)
)

// NormalizeHours cleans an hours table text. Day lines are kept, blank line
// runs and UI boilerplate are removed.
func NormalizeHours(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\t", " ")
	s = lineSpace.ReplaceAllString(strings.TrimSpace(s), "\n")
	s = copyBoilerplate.ReplaceAllString(s, "")
	s = suggestTail.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = hoursHeading.ReplaceAllString(s, "")
	s = ariaLabelNoise.ReplaceAllString(s, "")
	s = lineSpace.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n")

	return strings.TrimSpace(s)
}

// hoursFromLabel turns the accessible label of the hours trigger into text.
func hoursFromLabel(label string) (string, bool) {
	lower := strings.ToLower(label)
	if !strings.Contains(lower, "hour") && !strings.Contains(lower, "open") && !strings.Contains(lower, "closed") {
		return "", false
	}

	s := hoursLabelPrefix.ReplaceAllString(label, "")
	s = hoursWordPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.NewReplacer(";", "\n", ",", "\n").Replace(s)
	s = lineSpace.ReplaceAllString(strings.TrimSpace(s), "\n")
	s = blankRuns.ReplaceAllString(s, "\n")

	return s, len(s) > 5
}

// extractHours reads the visible summary, opens the weekly table and falls
// back to the summary and then to the trigger label.
func (r *areaRun) extractHours(ctx context.Context) string {
	var summary string

	if el, _, err := firstVisible(r.page, hoursSummarySelector); err == nil {
		summary = ownText(el)
	}

	trigger, _, err := firstVisible(r.page, hoursTriggerSelectors...)
	if err == nil {
		if err := trigger.Click(); err != nil {
			r.em.debug(StageDetail, "hours trigger click failed: %v", err)
		} else {
			r.pause(ctx, r.cfg.HoursClickSettle)
		}
	}

	if _, err := waitForAny(ctx, r.page, r.cfg.HoursPanelTimeout, r.cfg.PollInterval, hoursPanelSelectors...); err == nil {
		if panel, _, err := firstVisible(r.page, hoursPanelSelectors...); err == nil {
			if hours := NormalizeHours(ownText(panel)); hours != "" {
				return hours
			}
		}
	}

	if summary != "" {
		return summary
	}

	if trigger != nil {
		if hours, ok := hoursFromLabel(attr(trigger, "aria-label")); ok {
			return hours
		}
	}

	return NotFound
}
