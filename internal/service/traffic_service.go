package service

import (
	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/pkg/utils"
)

// ClassifyDensity labels every lane relative to the busiest lane.
// A lane at 75% or more of the busiest is High, 50% or more is Medium.
func ClassifyDensity(counts domain.LaneCounts) domain.DensityLevels {
	busiest := 0
	for _, n := range counts {
		if n > busiest {
			busiest = n
		}
	}
	if busiest == 0 {
		// Avoid dividing by zero; every lane is then Low
		busiest = 1
	}

	var levels domain.DensityLevels
	for i, n := range counts {
		levels[i] = densityLevel(utils.Percent(n, busiest))
	}
	return levels
}

// densityLevel returns the human-readable level for a percentage of the busiest lane
func densityLevel(percent float64) domain.DensityLevel {
	switch {
	case percent >= 75:
		return domain.DensityHigh
	case percent >= 50:
		return domain.DensityMedium
	default:
		return domain.DensityLow
	}
}
