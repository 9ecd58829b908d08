package gmaps

import (
	"strings"
)

// Field sentinels. Exporters branch on these exact values.
const (
	NotAttempted    = "NOT_ATTEMPTED"
	NotFound        = "NOT_FOUND"
	Blocked         = "BLOCKED"
	LoadError       = "LOAD_ERROR"
	ExtractionError = "EXTRACTION_ERROR"
)

// Record notes.
const (
	NoteOK              = "OK"
	NoteCaptchaBlocked  = "CAPTCHA_BLOCKED"
	NoteLoadError       = "LOAD_ERROR"
	NoteProcessingError = "PROCESSING_ERROR"
)

// IsSentinel reports whether v is one of the reserved field values.
func IsSentinel(v string) bool {
	switch v {
	case NotAttempted, NotFound, Blocked, LoadError, ExtractionError:
		return true
	}

	return false
}

type ResultCandidate struct {
	Reference   string
	DisplayName string
}

type ExtractedRecord struct {
	Area            string `json:"area"`
	CompanyName     string `json:"company_name"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	WebsiteDomain   string `json:"website"`
	Hours           string `json:"opening_hours"`
	SourceReference string `json:"google_maps_url"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	Note            string `json:"notes"`
}

func newRecord(area string, c ResultCandidate) ExtractedRecord {
	return ExtractedRecord{
		Area:            area,
		CompanyName:     c.DisplayName,
		Address:         NotAttempted,
		Phone:           NotAttempted,
		WebsiteDomain:   NotAttempted,
		Hours:           NotAttempted,
		SourceReference: c.Reference,
		Latitude:        NotAttempted,
		Longitude:       NotAttempted,
		Note:            NoteOK,
	}
}

func (r *ExtractedRecord) fill(sentinel, note string) {
	r.Address = sentinel
	r.Phone = sentinel
	r.WebsiteDomain = sentinel
	r.Hours = sentinel
	r.Latitude = sentinel
	r.Longitude = sentinel
	r.Note = note
}

// ensureComplete replaces any empty field so that no record leaves the
// extractor with an unset value.
func (r *ExtractedRecord) ensureComplete() {
	for _, f := range []*string{
		&r.Address, &r.Phone, &r.WebsiteDomain, &r.Hours, &r.Latitude, &r.Longitude,
	} {
		if strings.TrimSpace(*f) == "" {
			*f = NotFound
		}
	}

	if strings.TrimSpace(r.CompanyName) == "" {
		r.CompanyName = NotFound
	}

	if r.SourceReference == "" {
		r.SourceReference = NotFound
	}

	if r.Note == "" {
		r.Note = NoteOK
	}
}

func (r *ExtractedRecord) Blocked() bool {
	return r.Note == NoteCaptchaBlocked
}

func (r *ExtractedRecord) Errored() bool {
	return r.Note == NoteLoadError || r.Note == NoteProcessingError
}

func (r *ExtractedRecord) CsvHeaders() []string {
	return []string{
		"Area",
		"Company Name",
		"Address",
		"Phone",
		"Website",
		"Opening Hours",
		"Google Maps URL",
		"Latitude",
		"Longitude",
		"Notes",
	}
}

func (r *ExtractedRecord) CsvRow() []string {
	return []string{
		r.Area,
		r.CompanyName,
		r.Address,
		r.Phone,
		r.WebsiteDomain,
		r.Hours,
		r.SourceReference,
		r.Latitude,
		r.Longitude,
		r.Note,
	}
}
