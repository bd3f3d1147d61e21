package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TrafficEvent records one phase entry. Events are immutable once built.
type TrafficEvent struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Lane         LaneID     `json:"lane"`
	VehicleCount int        `json:"vehicle_count"`
	SignalTime   int        `json:"signal_time"`
	AllCounts    LaneCounts `json:"all_counts"`
}

// MarshalJSON adds the flat per-lane columns the dashboard history table reads
func (e TrafficEvent) MarshalJSON() ([]byte, error) {
	type plain TrafficEvent
	return json.Marshal(struct {
		plain
		NorthCount int `json:"north_count"`
		SouthCount int `json:"south_count"`
		EastCount  int `json:"east_count"`
		WestCount  int `json:"west_count"`
	}{
		plain:      plain(e),
		NorthCount: e.AllCounts[North],
		SouthCount: e.AllCounts[South],
		EastCount:  e.AllCounts[East],
		WestCount:  e.AllCounts[West],
	})
}

// PhaseState describes the phase currently holding right-of-way.
// Counts and Plan are the values captured when the phase was entered.
type PhaseState struct {
	Seq       uint64
	Lane      LaneID
	StartedAt time.Time
	Duration  int
	Counts    LaneCounts
	Plan      TimingPlan
}

// Remaining returns the whole seconds left in the phase at now, within [0, Duration]
func (p PhaseState) Remaining(now time.Time) int {
	elapsed := int(now.Sub(p.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := p.Duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status is the live intersection snapshot served by /api/status
type Status struct {
	CurrentLane   LaneID        `json:"current_lane"`
	LaneCounts    LaneCounts    `json:"lane_counts"`
	SignalTimings TimingPlan    `json:"signal_timings"`
	RemainingTime int           `json:"remaining_time"`
	Timestamp     time.Time     `json:"timestamp"`
	LiveCounts    LaneCounts    `json:"live_counts"`
	DensityLevels DensityLevels `json:"density_levels"`
	Processing    bool          `json:"processing"`
	PhaseSeq      uint64        `json:"phase_seq"`
}

// StatusResponse wraps the status with metadata
type StatusResponse struct {
	Data    Status `json:"data"`
	Success bool   `json:"success"`
}

// VideoSource names what the aggregator samples: either a capture device
// index or a path. The zero value is capture device 0.
type VideoSource struct {
	Path   string
	Device int
}

// IsDevice reports whether the source refers to a capture device
func (s VideoSource) IsDevice() bool {
	return s.Path == ""
}

func (s VideoSource) String() string {
	if s.IsDevice() {
		return "device:" + strconv.Itoa(s.Device)
	}
	return s.Path
}

// UnmarshalJSON accepts either a JSON string (path) or a number (device index)
func (s *VideoSource) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = VideoSource{}
		return nil
	}

	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		// Numeric strings like "0" still mean a device
		if n, convErr := strconv.Atoi(path); convErr == nil {
			*s = VideoSource{Device: n}
			return nil
		}
		*s = VideoSource{Path: path}
		return nil
	}

	var device int
	if err := json.Unmarshal(data, &device); err != nil {
		return fmt.Errorf("domain: video_path must be a string or integer: %w", err)
	}
	*s = VideoSource{Device: device}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON
func (s VideoSource) MarshalJSON() ([]byte, error) {
	if s.IsDevice() {
		return json.Marshal(s.Device)
	}
	return json.Marshal(s.Path)
}

// StartRequest is the body of POST /api/start
type StartRequest struct {
	VideoPath VideoSource `json:"video_path"`
}
