package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/timeutil"
)

// SourceCycleOrder is the default right-of-way rotation
var SourceCycleOrder = []domain.LaneID{domain.North, domain.South, domain.East, domain.West}

// ClockwiseCycleOrder rotates around the intersection
var ClockwiseCycleOrder = []domain.LaneID{domain.North, domain.East, domain.South, domain.West}

// DefaultEmitTimeout bounds a single event write to the sink
const DefaultEmitTimeout = 5 * time.Second

// ErrControllerStarted is returned by Start when the loop is already running
var ErrControllerStarted = errors.New("controller: already started")

// PhaseController rotates right-of-way between the lanes. On every phase
// entry it derives a timing plan from the density store, holds the phase for
// the lane's duration and records one TrafficEvent.
type PhaseController struct {
	store       *DensityStore
	sink        EventSink
	clock       timeutil.Clock
	order       []domain.LaneID
	emitTimeout time.Duration

	mu    sync.RWMutex
	phase domain.PhaseState

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	wgEmit sync.WaitGroup // tracks event writes for graceful shutdown
}

// ControllerOption configures a PhaseController
type ControllerOption func(*PhaseController)

// WithClock replaces the wall clock
func WithClock(c timeutil.Clock) ControllerOption {
	return func(pc *PhaseController) {
		pc.clock = c
	}
}

// WithCycleOrder replaces SourceCycleOrder. Every entry must be a valid lane.
func WithCycleOrder(order []domain.LaneID) ControllerOption {
	return func(pc *PhaseController) {
		if len(order) == 0 {
			return
		}
		for _, l := range order {
			if !l.Valid() {
				panic("controller: invalid lane in cycle order: " + l.String())
			}
		}
		pc.order = append([]domain.LaneID(nil), order...)
	}
}

// WithEmitTimeout bounds each sink write
func WithEmitTimeout(d time.Duration) ControllerOption {
	return func(pc *PhaseController) {
		if d > 0 {
			pc.emitTimeout = d
		}
	}
}

// NewPhaseController creates a controller whose initial state is the first
// lane of the cycle with default timings
func NewPhaseController(store *DensityStore, sink EventSink, opts ...ControllerOption) *PhaseController {
	c := &PhaseController{
		store:       store,
		sink:        sink,
		clock:       timeutil.RealClock{},
		order:       SourceCycleOrder,
		emitTimeout: DefaultEmitTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	plan := ComputeTimings(domain.LaneCounts{})
	c.phase = domain.PhaseState{
		Lane:      c.order[0],
		StartedAt: c.clock.Now(),
		Duration:  plan[c.order[0]],
		Plan:      plan,
	}
	return c
}

// Phase returns the current phase, including the counts and plan captured
// when it was entered. Until the first phase is entered the initial phase
// is held at its full duration.
func (c *PhaseController) Phase() domain.PhaseState {
	c.mu.RLock()
	phase := c.phase
	c.mu.RUnlock()

	if phase.Seq == 0 {
		phase.StartedAt = c.clock.Now()
	}
	return phase
}

// Order returns the cycle order
func (c *PhaseController) Order() []domain.LaneID {
	return append([]domain.LaneID(nil), c.order...)
}

// Start runs the phase loop in a background goroutine until ctx is
// cancelled or Shutdown is called
func (c *PhaseController) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.done != nil {
		return ErrControllerStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		c.Run(runCtx)
	}()
	return nil
}

// Shutdown stops the phase loop and waits for it and for pending event
// writes, or until ctx expires
func (c *PhaseController) Shutdown(ctx context.Context) error {
	c.runMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	done := c.done
	c.runMu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	drained := make(chan struct{})
	go func() {
		c.wgEmit.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run cycles through the lanes until ctx is cancelled
func (c *PhaseController) Run(ctx context.Context) {
	idx := 0
	for seq := uint64(1); ; seq++ {
		if ctx.Err() != nil {
			return
		}

		state := c.enter(c.order[idx], seq)
		c.emit(state)

		if !c.hold(ctx, time.Duration(state.Duration)*time.Second) {
			return
		}
		idx = (idx + 1) % len(c.order)
	}
}

// enter makes lane the active phase using a plan computed from the
// current density snapshot
func (c *PhaseController) enter(lane domain.LaneID, seq uint64) domain.PhaseState {
	counts := c.store.Load()
	plan := ComputeTimings(counts)

	state := domain.PhaseState{
		Seq:       seq,
		Lane:      lane,
		StartedAt: c.clock.Now(),
		Duration:  plan[lane],
		Counts:    counts,
		Plan:      plan,
	}

	c.mu.Lock()
	c.phase = state
	c.mu.Unlock()

	log.Printf("controller: %s green for %ds (vehicles %d of %d)", lane, state.Duration, counts[lane], counts.Total())
	return state
}

// emit hands the phase entry to the sink without delaying the phase timer.
// Sink failures are logged and dropped.
func (c *PhaseController) emit(state domain.PhaseState) {
	event := domain.TrafficEvent{
		ID:           uuid.NewString(),
		Timestamp:    state.StartedAt,
		Lane:         state.Lane,
		VehicleCount: state.Counts[state.Lane],
		SignalTime:   state.Duration,
		AllCounts:    state.Counts,
	}

	c.wgEmit.Add(1)
	go func() {
		defer c.wgEmit.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.emitTimeout)
		defer cancel()
		if err := c.sink.AppendEvent(ctx, event); err != nil {
			log.Printf("controller: failed to record %s phase event: %v", event.Lane, err)
		}
	}()
}

// hold blocks for d; it returns false if ctx was cancelled first
func (c *PhaseController) hold(ctx context.Context, d time.Duration) bool {
	timer := c.clock.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C():
		return true
	}
}
