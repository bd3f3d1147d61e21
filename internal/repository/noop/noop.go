// Package noop provides the event sink used when no storage is configured.
package noop

import (
	"context"

	"github.com/smartcity/flowsense/internal/domain"
)

// Sink implements domain.EventSink and discards every event
type Sink struct{}

// NewSink creates a new no-op sink
func NewSink() *Sink {
	return &Sink{}
}

// AppendEvent is a no-op
func (Sink) AppendEvent(ctx context.Context, event domain.TrafficEvent) error {
	return nil
}

// RecentEvents always returns an empty history
func (Sink) RecentEvents(ctx context.Context, limit int) ([]domain.TrafficEvent, error) {
	return []domain.TrafficEvent{}, nil
}

// Health always returns nil
func (Sink) Health(ctx context.Context) error {
	return nil
}

// Name identifies the sink
func (Sink) Name() string {
	return "disabled"
}
