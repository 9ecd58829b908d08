// Package tlmt sends anonymous usage events.
package tlmt

import (
	"context"
)

type Event struct {
	Name       string
	Properties map[string]any
}

func NewEvent(name string, props map[string]any) Event {
	if props == nil {
		props = map[string]any{}
	}

	return Event{Name: name, Properties: props}
}

type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
