package domain

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrAlreadyRunning is returned when processing is started twice
var ErrAlreadyRunning = errors.New("already processing")

// EventSink defines the interface for traffic event persistence.
// The domain defines the interface, repositories implement it.
type EventSink interface {
	// AppendEvent persists a single phase entry event
	AppendEvent(ctx context.Context, event TrafficEvent) error

	// RecentEvents returns up to limit events, newest first
	RecentEvents(ctx context.Context, limit int) ([]TrafficEvent, error)

	// Health checks sink connectivity
	Health(ctx context.Context) error

	// Name identifies the backing store, e.g. "postgres"
	Name() string
}

// EventPruner is implemented by sinks that can drop old history
type EventPruner interface {
	// PruneBefore deletes events older than cutoff and returns how many were removed
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// VehicleCounter counts vehicles within an image region
type VehicleCounter interface {
	CountVehicles(ctx context.Context, region image.Image) (int, error)
}

// FrameSource yields frames from a looping feed
type FrameSource interface {
	// Next returns the next frame, or io.EOF at end of stream
	Next() (image.Image, error)

	// Rewind seeks back to the first frame
	Rewind() error

	// Close releases the underlying resource
	Close() error
}

// FrameOpener opens a FrameSource for a requested video source
type FrameOpener interface {
	Open(src VideoSource) (FrameSource, error)
}

// FrameOpenerFunc adapts a function to FrameOpener
type FrameOpenerFunc func(src VideoSource) (FrameSource, error)

// Open calls f(src)
func (f FrameOpenerFunc) Open(src VideoSource) (FrameSource, error) {
	return f(src)
}
