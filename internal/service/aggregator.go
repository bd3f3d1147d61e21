package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/timeutil"
	"github.com/smartcity/flowsense/internal/video"
)

// DefaultSampleInterval is the pause between two sampling passes
const DefaultSampleInterval = 500 * time.Millisecond

// LaneAggregator samples the four lane quadrants of a video feed and
// publishes the resulting counts to a DensityStore
type LaneAggregator struct {
	store    *DensityStore
	counter  domain.VehicleCounter
	opener   domain.FrameOpener
	clock    timeutil.Clock
	interval time.Duration
	logf     func(format string, v ...interface{})
}

// AggregatorOption configures a LaneAggregator
type AggregatorOption func(*LaneAggregator)

// WithSampleInterval overrides DefaultSampleInterval
func WithSampleInterval(d time.Duration) AggregatorOption {
	return func(a *LaneAggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithAggregatorClock replaces the wall clock
func WithAggregatorClock(c timeutil.Clock) AggregatorOption {
	return func(a *LaneAggregator) {
		a.clock = c
	}
}

// WithAggregatorLogger redirects diagnostics, which default to log.Printf.
// Passing nil mutes them.
func WithAggregatorLogger(f func(format string, v ...interface{})) AggregatorOption {
	return func(a *LaneAggregator) {
		if f == nil {
			f = func(string, ...interface{}) {}
		}
		a.logf = f
	}
}

// NewLaneAggregator creates a new lane aggregator
func NewLaneAggregator(
	store *DensityStore,
	counter domain.VehicleCounter,
	opener domain.FrameOpener,
	opts ...AggregatorOption,
) *LaneAggregator {
	a := &LaneAggregator{
		store:    store,
		counter:  counter,
		opener:   opener,
		clock:    timeutil.RealClock{},
		interval: DefaultSampleInterval,
		logf:     log.Printf,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run samples src until ctx is cancelled. A source that cannot be opened or
// stops yielding frames does not stop the loop: counts are published as zero
// instead. Degradation is logged when it starts and when it clears.
func (a *LaneAggregator) Run(ctx context.Context, src domain.VideoSource) {
	source, err := a.opener.Open(src)
	if err != nil {
		a.logf("aggregator: could not open %s, lane counts will stay at zero: %v", src, err)
		source = nil
	} else {
		defer func() {
			if err := source.Close(); err != nil {
				a.logf("aggregator: failed to release %s: %v", src, err)
			}
		}()
		a.logf("aggregator: sampling %s every %v", src, a.interval)
	}

	var noFrames, counterDown bool
	for {
		if ctx.Err() != nil {
			a.logf("aggregator: stopped sampling %s", src)
			return
		}

		counts, frameErr, countErr := a.sample(ctx, source)
		if ctx.Err() == nil {
			a.store.Publish(counts, a.clock.Now())

			switch {
			case frameErr != nil && !noFrames:
				a.logf("aggregator: no frame available from %s, lane counts will read 0: %v", src, frameErr)
				noFrames = true
			case frameErr == nil && noFrames:
				a.logf("aggregator: frames available again from %s", src)
				noFrames = false
			}

			if frameErr == nil && source != nil {
				switch {
				case countErr != nil && !counterDown:
					a.logf("aggregator: vehicle counting failing, affected lanes read 0: %v", countErr)
					counterDown = true
				case countErr == nil && counterDown:
					a.logf("aggregator: vehicle counting recovered")
					counterDown = false
				}
			}
		}

		if !a.sleep(ctx) {
			a.logf("aggregator: stopped sampling %s", src)
			return
		}
	}
}

// sample reads one frame and counts every lane. With no source, or no
// readable frame, the snapshot is all zeros. frameErr reports why no frame
// was read; countErr reports lanes whose count failed and were zeroed.
func (a *LaneAggregator) sample(ctx context.Context, source domain.FrameSource) (counts domain.LaneCounts, frameErr, countErr error) {
	if source == nil {
		return counts, nil, nil
	}

	frame, err := source.Next()
	if errors.Is(err, io.EOF) {
		// Loop the feed
		if rerr := source.Rewind(); rerr != nil {
			return counts, fmt.Errorf("rewind: %w", rerr), nil
		}
		frame, err = source.Next()
	}
	if err != nil {
		return counts, err, nil
	}

	failed := 0
	var lastErr error
	for _, lane := range domain.Lanes {
		n, err := a.counter.CountVehicles(ctx, video.CropLane(frame, lane))
		if err != nil {
			failed++
			lastErr = err
			n = 0
		}
		counts[lane] = n
	}
	if failed > 0 {
		countErr = fmt.Errorf("%d lane count(s) failed: %w", failed, lastErr)
	}
	return counts, nil, countErr
}

// sleep waits one sample interval; it returns false if ctx was cancelled first
func (a *LaneAggregator) sleep(ctx context.Context) bool {
	timer := a.clock.NewTimer(a.interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C():
		return true
	}
}
