package service

import (
	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/pkg/utils"
)

// Signal timing constraints, in seconds
const (
	MinGreenTime     = 15
	MaxGreenTime     = 90
	TotalCycleTime   = 120
	DefaultGreenTime = 30
)

// ComputeTimings converts lane counts into per-lane green durations.
//
// With no traffic every lane gets DefaultGreenTime. Otherwise each lane gets
// its truncated share of TotalCycleTime, clamped to [MinGreenTime, MaxGreenTime].
// Clamping means the durations do not necessarily add up to TotalCycleTime.
func ComputeTimings(counts domain.LaneCounts) domain.TimingPlan {
	var plan domain.TimingPlan

	total := counts.Total()
	if total == 0 {
		for i := range plan {
			plan[i] = DefaultGreenTime
		}
		return plan
	}

	for i, count := range counts {
		plan[i] = utils.Clamp(rawShare(count, total), MinGreenTime, MaxGreenTime)
	}
	return plan
}

// rawShare is floor(TotalCycleTime * count / total) before clamping
func rawShare(count, total int) int {
	return TotalCycleTime * count / total
}
