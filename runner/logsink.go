package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gosom/scrapemate"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

// LogSink forwards engine events to the context logger. Area headlines,
// warnings and errors are also printed to w as "[STAGE] [area] message".
// Debug events are dropped unless verbose is set.
func LogSink(ctx context.Context, w io.Writer, verbose bool) gmaps.EventSink {
	log := scrapemate.GetLoggerFromContext(ctx)

	var mu sync.Mutex

	return func(e gmaps.Event) {
		if e.Severity == gmaps.SeverityDebug && !verbose {
			return
		}

		args := []any{"stage", e.Stage, "area", e.Area}

		switch e.Severity {
		case gmaps.SeverityDebug:
			log.Debug(e.Message, args...)
		case gmaps.SeverityWarn:
			log.Warn(e.Message, args...)
		case gmaps.SeverityError:
			log.Error(e.Message, args...)
		default:
			log.Info(e.Message, args...)
		}

		if w == nil || !headline(e) {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(w, "[%s] [%s] %s\n", strings.ToUpper(e.Stage), e.Area, e.Message)
	}
}

func headline(e gmaps.Event) bool {
	switch {
	case e.Stage == gmaps.StageArea:
		return true
	case e.Severity == gmaps.SeverityWarn, e.Severity == gmaps.SeverityError:
		return true
	default:
		return false
	}
}
