package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/timeutil"
)

// SignalService is the request-facing side of the scheduler: it serves the
// live status and history, and starts and stops lane sampling
type SignalService struct {
	store      *DensityStore
	controller *PhaseController
	aggregator *LaneAggregator
	sink       EventSink
	clock      timeutil.Clock

	mu        sync.Mutex
	running   bool
	source    domain.VideoSource
	cancelRun context.CancelFunc

	wgRuns sync.WaitGroup // tracks aggregator goroutines for graceful shutdown
}

// NewSignalService creates a new signal service
func NewSignalService(
	store *DensityStore,
	controller *PhaseController,
	aggregator *LaneAggregator,
	sink EventSink,
	clock timeutil.Clock,
) *SignalService {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SignalService{
		store:      store,
		controller: controller,
		aggregator: aggregator,
		sink:       sink,
		clock:      clock,
	}
}

// Start begins sampling src. It returns domain.ErrAlreadyRunning, and starts
// nothing, if sampling is already active.
func (s *SignalService) Start(src domain.VideoSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return domain.ErrAlreadyRunning
	}

	// Each run owns its context so a stale aggregator from an earlier run
	// can never resume after a quick stop/start.
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.source = src
	s.cancelRun = cancel

	s.wgRuns.Add(1)
	go func() {
		defer s.wgRuns.Done()
		s.aggregator.Run(ctx, src)
	}()

	log.Printf("signal: processing started for %s", src)
	return nil
}

// Stop ends sampling. Stopping when already stopped is a no-op.
func (s *SignalService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	if s.running {
		log.Printf("signal: processing stopped for %s", s.source)
	}
	s.running = false
}

// Processing reports whether sampling is active and for which source
func (s *SignalService) Processing() (bool, domain.VideoSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.source
}

// Status returns the live intersection snapshot. Lane counts and timings
// are the ones the current phase was entered with.
func (s *SignalService) Status() domain.Status {
	phase := s.controller.Phase()
	live := s.store.Load()
	running, _ := s.Processing()
	now := s.clock.Now()

	return domain.Status{
		CurrentLane:   phase.Lane,
		LaneCounts:    phase.Counts,
		SignalTimings: phase.Plan,
		RemainingTime: phase.Remaining(now),
		Timestamp:     now,
		LiveCounts:    live,
		DensityLevels: ClassifyDensity(live),
		Processing:    running,
		PhaseSeq:      phase.Seq,
	}
}

// History returns up to limit recorded phase events, newest first
func (s *SignalService) History(ctx context.Context, limit int) ([]domain.TrafficEvent, error) {
	events, err := s.sink.RecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("signal: failed to read history: %w", err)
	}
	if events == nil {
		events = []domain.TrafficEvent{}
	}
	return events, nil
}

// StorageName identifies the configured event sink
func (s *SignalService) StorageName() string {
	return s.sink.Name()
}

// StorageHealth checks the event sink
func (s *SignalService) StorageHealth(ctx context.Context) error {
	return s.sink.Health(ctx)
}

// WaitBackground stops sampling and blocks until every aggregator goroutine
// has released its source. Call during graceful shutdown.
func (s *SignalService) WaitBackground() {
	s.Stop()
	s.wgRuns.Wait()
}
