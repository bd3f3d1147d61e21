package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartcity/flowsense/internal/domain"
)

// fakeSink records appended events in memory
type fakeSink struct {
	mu        sync.Mutex
	events    []domain.TrafficEvent
	appendErr error
	recentErr error
	block     chan struct{}
	cutoffs   []time.Time
}

func newFakeSink() *fakeSink {
	return &fakeSink{}
}

func (s *fakeSink) AppendEvent(ctx context.Context, event domain.TrafficEvent) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) RecentEvents(ctx context.Context, limit int) ([]domain.TrafficEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	var out []domain.TrafficEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *fakeSink) Health(ctx context.Context) error { return nil }

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return 3, nil
}

func (s *fakeSink) Events() []domain.TrafficEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TrafficEvent(nil), s.events...)
}

// quadrantCounter returns a fixed count per quadrant, identified by the
// top-left corner of the cropped region within a 100x100 frame
type quadrantCounter struct {
	counts  domain.LaneCounts
	failFor map[domain.LaneID]bool
	down    atomic.Bool
	calls   atomic.Int64
}

func (c *quadrantCounter) CountVehicles(ctx context.Context, region image.Image) (int, error) {
	c.calls.Add(1)
	lane := laneAt(region.Bounds().Min)
	if c.down.Load() || c.failFor[lane] {
		return 0, errors.New("detector unavailable")
	}
	return c.counts[lane], nil
}

func laneAt(p image.Point) domain.LaneID {
	switch {
	case p.X == 0 && p.Y == 0:
		return domain.North
	case p.X > 0 && p.Y == 0:
		return domain.East
	case p.X > 0 && p.Y > 0:
		return domain.South
	default:
		return domain.West
	}
}

// loopSource serves the same frame a fixed number of times per pass
type loopSource struct {
	frames  int
	served  int
	rewinds atomic.Int64
	closed  atomic.Bool
	mu      sync.Mutex
}

func (s *loopSource) Next() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served >= s.frames {
		return nil, io.EOF
	}
	s.served++
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

func (s *loopSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served = 0
	s.rewinds.Add(1)
	return nil
}

func (s *loopSource) Close() error {
	s.closed.Store(true)
	return nil
}

// brokenSource opens fine but never yields a decodable frame: each pass
// hits end of stream, and the read after the rewind fails to decode
type brokenSource struct {
	rewinds atomic.Int64
	nexts   atomic.Int64
}

func (s *brokenSource) Next() (image.Image, error) {
	if s.nexts.Add(1)%2 == 1 {
		return nil, io.EOF
	}
	return nil, errors.New("image: unknown format")
}

func (s *brokenSource) Rewind() error {
	s.rewinds.Add(1)
	return nil
}

func (s *brokenSource) Close() error { return nil }

// fixedOpener always hands out the same source
type fixedOpener struct {
	source domain.FrameSource
}

func (o fixedOpener) Open(src domain.VideoSource) (domain.FrameSource, error) {
	return o.source, nil
}

// logRecorder captures formatted diagnostics
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

// Count returns how many lines contain substr
func (r *logRecorder) Count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, line := range r.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// countingOpener hands out a loopSource and counts Open calls
type countingOpener struct {
	opens   atomic.Int64
	err     error
	mu      sync.Mutex
	sources []*loopSource
}

func (o *countingOpener) Open(src domain.VideoSource) (domain.FrameSource, error) {
	o.opens.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	s := &loopSource{frames: 2}
	o.mu.Lock()
	o.sources = append(o.sources, s)
	o.mu.Unlock()
	return s, nil
}

func (o *countingOpener) Sources() []*loopSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*loopSource(nil), o.sources...)
}
