package gmaps

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

const (
	StageSession  = "session"
	StageBlock    = "block"
	StageSearch   = "search"
	StageScroll   = "scroll"
	StageHarvest  = "harvest"
	StageDetail   = "detail"
	StageNavigate = "navigate"
	StageArea     = "area"
)

type Event struct {
	Time     time.Time
	Stage    string
	Area     string
	Severity Severity
	Message  string
}

// EventSink receives progress events. It is called synchronously from the
// scraping goroutine.
type EventSink func(Event)

func NopSink(Event) {}

type emitter struct {
	sink EventSink
	area string
}

func (e emitter) emit(stage string, sev Severity, format string, args ...any) {
	if e.sink == nil {
		return
	}

	e.sink(Event{
		Time:     time.Now().UTC(),
		Stage:    stage,
		Area:     e.area,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (e emitter) debug(stage, format string, args ...any) {
	e.emit(stage, SeverityDebug, format, args...)
}

func (e emitter) info(stage, format string, args ...any) {
	e.emit(stage, SeverityInfo, format, args...)
}

func (e emitter) warn(stage, format string, args ...any) {
	e.emit(stage, SeverityWarn, format, args...)
}

func (e emitter) error(stage, format string, args ...any) {
	e.emit(stage, SeverityError, format, args...)
}
