package service

import (
	"sync"
	"time"

	"github.com/smartcity/flowsense/internal/domain"
)

// DensityStore holds the latest per-lane vehicle counts.
// Writers replace the whole snapshot, so readers never see counts from
// two different samples.
type DensityStore struct {
	mu        sync.RWMutex
	counts    domain.LaneCounts
	updatedAt time.Time
	samples   uint64
}

// NewDensityStore creates a store with every lane at zero
func NewDensityStore() *DensityStore {
	return &DensityStore{}
}

// Publish replaces the stored snapshot. Negative counts are stored as zero.
func (s *DensityStore) Publish(counts domain.LaneCounts, at time.Time) {
	for i, n := range counts {
		if n < 0 {
			counts[i] = 0
		}
	}

	s.mu.Lock()
	s.counts = counts
	s.updatedAt = at
	s.samples++
	s.mu.Unlock()
}

// Load returns a copy of the current snapshot
func (s *DensityStore) Load() domain.LaneCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts
}

// UpdatedAt returns when the snapshot was last published and how many
// snapshots have been published in total
func (s *DensityStore) UpdatedAt() (time.Time, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt, s.samples
}
