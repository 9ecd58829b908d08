package gmaps

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	olc "github.com/google/open-location-code/go"
)

type LatLng struct {
	Lat float64
	Lng float64
}

func (l LatLng) strings() (string, string) {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64), strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

var (
	atPattern     = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	dataPattern   = regexp.MustCompile(`data=.*?(?:!3d|%213d)(-?\d+\.\d+).*?(?:!4d|%214d)(-?\d+\.\d+)`)
	centerParam   = regexp.MustCompile(`center=([^&]+)`)
	plusCodeShape = regexp.MustCompile(`\b[23456789CFGHJMPQRVWX]{4,8}\+[23456789CFGHJMPQRVWX]{0,3}\b`)
)

func parseLatLng(lat, lng string) (LatLng, bool) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return LatLng{}, false
	}

	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || ln < -180 || ln > 180 {
		return LatLng{}, false
	}

	return LatLng{Lat: la, Lng: ln}, true
}

func parseAtCoordinates(u string) (LatLng, bool) {
	m := atPattern.FindStringSubmatch(u)
	if len(m) != 3 {
		return LatLng{}, false
	}

	return parseLatLng(m[1], m[2])
}

func parseDataCoordinates(u string) (LatLng, bool) {
	m := dataPattern.FindStringSubmatch(u)
	if len(m) != 3 {
		return LatLng{}, false
	}

	return parseLatLng(m[1], m[2])
}

// CoordinatesFromURL tries the "@lat,lng" form first and then the
// "data=...!3d{lat}!4d{lng}" form.
func CoordinatesFromURL(u string) (LatLng, bool) {
	if ll, ok := parseAtCoordinates(u); ok {
		return ll, true
	}

	return parseDataCoordinates(u)
}

// extractCoordinates looks at the current reference, the original one, the
// embedded geo metadata and finally a visible plus code.
func (r *areaRun) extractCoordinates(original string) (string, string) {
	current := r.page.URL()

	if ll, ok := CoordinatesFromURL(current); ok {
		return ll.strings()
	}

	if original != "" && original != current {
		if ll, ok := CoordinatesFromURL(original); ok {
			return ll.strings()
		}
	}

	doc, err := pageDocument(r.page)
	if err != nil {
		r.em.debug(StageDetail, "page content unavailable for coordinates: %v", err)

		return NotFound, NotFound
	}

	if ll, ok := coordinatesFromMetadata(doc); ok {
		return ll.strings()
	}

	if ll, ok := coordinatesFromPlusCode(doc, r.center); ok {
		return ll.strings()
	}

	return NotFound, NotFound
}

func coordinatesFromMetadata(doc *goquery.Document) (LatLng, bool) {
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		raw := content
		if m := centerParam.FindStringSubmatch(content); len(m) == 2 {
			if unescaped, err := url.QueryUnescape(m[1]); err == nil {
				raw = unescaped
			}

			if lat, lng, found := strings.Cut(raw, ","); found {
				if ll, ok := parseLatLng(lat, lng); ok {
					return ll, true
				}
			}
		}
	}

	var ans LatLng

	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload struct {
			Geo struct {
				Latitude  json.Number `json:"latitude"`
				Longitude json.Number `json:"longitude"`
			} `json:"geo"`
		}

		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}

		ans, found = parseLatLng(payload.Geo.Latitude.String(), payload.Geo.Longitude.String())

		return !found
	})

	if found {
		return ans, true
	}

	lat, okLat := doc.Find(`meta[itemprop="latitude"]`).First().Attr("content")
	lng, okLng := doc.Find(`meta[itemprop="longitude"]`).First().Attr("content")

	if okLat && okLng {
		return parseLatLng(lat, lng)
	}

	return LatLng{}, false
}

// coordinatesFromPlusCode decodes the plus code shown on the detail page.
// Short codes need a reference point, which is the centre of the search
// viewport.
func coordinatesFromPlusCode(doc *goquery.Document, ref *LatLng) (LatLng, bool) {
	text := doc.Find(`button[data-item-id='oloc']`).First().Text()
	if text == "" {
		return LatLng{}, false
	}

	code := plusCodeShape.FindString(strings.ToUpper(text))
	if code == "" {
		return LatLng{}, false
	}

	return DecodePlusCode(code, ref)
}

func DecodePlusCode(code string, ref *LatLng) (LatLng, bool) {
	if olc.CheckFull(code) != nil {
		if ref == nil || olc.CheckShort(code) != nil {
			return LatLng{}, false
		}

		full, err := olc.RecoverNearest(code, ref.Lat, ref.Lng)
		if err != nil {
			return LatLng{}, false
		}

		code = full
	}

	area, err := olc.Decode(code)
	if err != nil {
		return LatLng{}, false
	}

	lat, lng := area.Center()

	return LatLng{Lat: lat, Lng: lng}, true
}
