package exporter

import (
	"regexp"
	"strings"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

// Missing is written wherever the record holds a sentinel or nothing.
const Missing = "N/A"

var blankLines = regexp.MustCompile(`\n\s*\n`)

var notes = map[string]string{
	gmaps.NoteOK:              "",
	gmaps.NoteCaptchaBlocked:  "CAPTCHA Blocked",
	gmaps.NoteLoadError:       "Load Error",
	gmaps.NoteProcessingError: "Processing Error",
}

// Normalize maps sentinels to N/A, trims every value and turns the note into
// its human readable form. Hours keep one day per line.
func Normalize(rec gmaps.ExtractedRecord) gmaps.ExtractedRecord {
	out := gmaps.ExtractedRecord{
		Area:            clean(rec.Area),
		CompanyName:     clean(rec.CompanyName),
		Address:         clean(rec.Address),
		Phone:           clean(rec.Phone),
		WebsiteDomain:   clean(rec.WebsiteDomain),
		Hours:           cleanHours(rec.Hours),
		SourceReference: clean(rec.SourceReference),
		Latitude:        clean(rec.Latitude),
		Longitude:       clean(rec.Longitude),
	}

	note, ok := notes[rec.Note]
	if !ok {
		note = strings.TrimSpace(rec.Note)
	}

	out.Note = note

	return out
}

func NormalizeAll(records []gmaps.ExtractedRecord) []gmaps.ExtractedRecord {
	ans := make([]gmaps.ExtractedRecord, 0, len(records))
	for i := range records {
		ans = append(ans, Normalize(records[i]))
	}

	return ans
}

func clean(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || gmaps.IsSentinel(v) {
		return Missing
	}

	return v
}

func cleanHours(v string) string {
	v = clean(v)
	if v == Missing {
		return v
	}

	v = strings.ReplaceAll(v, "\r\n", "\n")

	return strings.TrimSpace(blankLines.ReplaceAllString(v, "\n"))
}
