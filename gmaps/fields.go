package gmaps

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of locating a field on a detail page. It returns
// ErrNotFound when it found nothing usable; any other error counts as a
// failed attempt.
type Strategy func(Page) (string, error)

// cascade tries strategies in order and returns the first usable value.
// When every strategy failed with a real error the last one is returned,
// otherwise ErrNotFound.
func cascade(page Page, strategies ...Strategy) (string, error) {
	var (
		failures int
		lastErr  error
	)

	for _, s := range strategies {
		v, err := runStrategy(page, s)
		if err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}

		if err != nil && !errors.Is(err, ErrNotFound) {
			failures++
			lastErr = err
		}
	}

	if len(strategies) > 0 && failures == len(strategies) {
		return "", lastErr
	}

	return "", ErrNotFound
}

func runStrategy(page Page, s Strategy) (v string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("strategy panicked: %v", rec)
		}
	}()

	return s(page)
}

// fieldValue maps a cascade result onto the record vocabulary.
func fieldValue(v string, err error) string {
	switch {
	case err == nil:
		return v
	case errors.Is(err, ErrNotFound):
		return NotFound
	default:
		return ExtractionError
	}
}

// eachVisible builds a strategy that returns the first value pick accepts
// from the visible matches of selector.
func eachVisible(selector string, pick func(Element) (string, bool)) Strategy {
	return func(page Page) (string, error) {
		els, err := page.QueryAll(selector)
		if err != nil {
			return "", err
		}

		for _, el := range els {
			if !el.IsVisible() {
				continue
			}

			if v, ok := pick(el); ok {
				return v, nil
			}
		}

		return "", ErrNotFound
	}
}

const innerValueSelector = `div.Io6YTe, div.QsDR1c`

func innerValue(el Element) string {
	inner, err := el.Query(innerValueSelector)
	if err != nil {
		return ""
	}

	text, err := inner.InnerText()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(text)
}

func ownText(el Element) string {
	text, err := el.InnerText()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(text)
}

func attr(el Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(v)
}

var headingSelectors = []string{
	`xpath=//h1[contains(@class, 'fontHeadlineLarge')]`,
	`h1`,
	`div[role='main']`,
}

func extractName(page Page, fallback string) string {
	name, err := cascade(page,
		eachVisible(headingSelectors[0], textOf),
		eachVisible(headingSelectors[1], textOf),
	)
	if err != nil {
		return fallback
	}

	return name
}

func textOf(el Element) (string, bool) {
	t := ownText(el)

	return t, t != ""
}

// address

var (
	addressSelectors = []string{
		`button[data-item-id='address']`,
		`a[data-item-id='address']`,
		`xpath=//button[contains(@aria-label, 'Address:')]`,
		`xpath=//a[contains(@aria-label, 'Address:')]`,
		`xpath=//div[contains(@class, 'Io6YTe') and .//img[contains(@src, 'ic_pin_place')]]`,
		`xpath=//div[contains(@class, 'rogA2c')]/div[contains(@class, 'Io6YTe')]`,
		`xpath=//button[@data-tooltip='Copy address']/following-sibling::div[1]`,
		`xpath=//div[@data-tooltip='Copy address']//following-sibling::div[contains(@class, 'Io6YTe')]`,
	}

	addressLabelPrefix = regexp.MustCompile(`(?i)^\s*address:\s*`)
	// street number ... state token ... postcode
	addressPattern = regexp.MustCompile(`\d+[A-Za-z0-9 ,.'/-]{4,}\b(NSW|VIC|QLD|WA|SA|TAS|ACT|NT)\b\s*\d{4}`)
)

const minAddressLen = 6

func addressStrategies() []Strategy {
	ans := make([]Strategy, 0, len(addressSelectors)+1)

	for _, sel := range addressSelectors {
		ans = append(ans, eachVisible(sel, pickAddress))
	}

	return append(ans, addressFromMarkup)
}

func pickAddress(el Element) (string, bool) {
	v := innerValue(el)

	if v == "" {
		v = ownText(el)
	}

	if v == "" {
		label := attr(el, "aria-label")
		if addressLabelPrefix.MatchString(label) {
			v = strings.TrimSpace(addressLabelPrefix.ReplaceAllString(label, ""))
		}
	}

	return v, len(v) >= minAddressLen
}

// addressFromMarkup scans the rendered markup for free text that looks like
// a street address.
func addressFromMarkup(page Page) (string, error) {
	doc, err := pageDocument(page)
	if err != nil {
		return "", err
	}

	var ans string

	doc.Find("div.Io6YTe, button, span, div.fontBodyMedium").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 200 {
			return true
		}

		if m := addressPattern.FindString(text); m != "" {
			ans = strings.TrimSpace(m)

			return false
		}

		return true
	})

	if ans == "" {
		return "", ErrNotFound
	}

	return ans, nil
}

// phone

var (
	phoneSelectors = []string{
		`button[data-item-id^='phone:tel:']`,
		`a[data-item-id^='phone:tel:']`,
		`xpath=//button[contains(@aria-label, 'Phone:')]`,
		`xpath=//a[contains(@aria-label, 'Phone:')]`,
		`xpath=//div[contains(@class, 'rogA2c') and .//span[contains(text(), 'call')]]//div[contains(@class, 'Io6YTe')]`,
		`xpath=//button[@data-tooltip='Copy phone number']/following-sibling::div[1]`,
		`xpath=//div[@data-tooltip='Copy phone number']//following-sibling::div[contains(@class, 'Io6YTe')]`,
		`a[href^='tel:']`,
	}

	phoneShape     = regexp.MustCompile(`[\d+() -]{7,}`)
	phoneLabel     = regexp.MustCompile(`(?i)phone:\s*([+\d\s()-]+)`)
	phoneTelFilter = regexp.MustCompile(`[^\d+()\s-]`)
)

func phoneStrategies() []Strategy {
	ans := make([]Strategy, 0, len(phoneSelectors))

	for _, sel := range phoneSelectors {
		ans = append(ans, eachVisible(sel, pickPhone))
	}

	return ans
}

// LooksLikePhone reports whether s carries at least seven phone characters
// in a row.
func LooksLikePhone(s string) bool {
	return phoneShape.MatchString(s)
}

func pickPhone(el Element) (string, bool) {
	if v := innerValue(el); LooksLikePhone(v) {
		return v, true
	}

	if v := ownText(el); LooksLikePhone(v) {
		return v, true
	}

	if href := attr(el, "href"); strings.HasPrefix(href, "tel:") {
		v := strings.TrimSpace(phoneTelFilter.ReplaceAllString(strings.TrimPrefix(href, "tel:"), ""))
		if LooksLikePhone(v) {
			return v, true
		}
	}

	if m := phoneLabel.FindStringSubmatch(attr(el, "aria-label")); len(m) == 2 {
		v := strings.TrimSpace(m[1])
		if LooksLikePhone(v) {
			return v, true
		}
	}

	return "", false
}

// website

var websiteSelectors = []string{
	`a[data-item-id='authority']`,
	`xpath=//a[contains(@aria-label, 'Website:')]`,
	`xpath=//button[contains(@aria-label, 'Website:')]`,
	`xpath=//div[contains(@class, 'rogA2c') and .//span[contains(text(), 'public')]]//div[contains(@class, 'Io6YTe')]//a`,
	`xpath=//a[@data-tooltip='Open website in new tab']`,
	`xpath=//div[@data-tooltip='Open website']//following-sibling::div//a`,
}

func websiteStrategies() []Strategy {
	ans := make([]Strategy, 0, len(websiteSelectors))

	for _, sel := range websiteSelectors {
		ans = append(ans, eachVisible(sel, pickWebsite))
	}

	return ans
}

func pickWebsite(el Element) (string, bool) {
	href := attr(el, "href")

	return href, strings.HasPrefix(href, "http")
}

func extractWebsite(page Page) string {
	href, err := cascade(page, websiteStrategies()...)
	if err != nil {
		return fieldValue("", err)
	}

	domain, ok := WebsiteDomain(href)
	if !ok {
		return ExtractionError
	}

	return domain
}

func pageDocument(page Page) (*goquery.Document, error) {
	body, err := page.Content()
	if err != nil {
		return nil, err
	}

	return goquery.NewDocumentFromReader(strings.NewReader(body))
}
