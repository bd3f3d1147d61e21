package domain

import (
	"encoding/json"
	"fmt"
)

// LaneID identifies one approach of the intersection
type LaneID int

const (
	North LaneID = iota
	South
	East
	West
)

// LaneCount is the number of approaches at the intersection
const LaneCount = 4

var laneNames = [LaneCount]string{"North", "South", "East", "West"}

// Lanes lists every lane in declaration order
var Lanes = [LaneCount]LaneID{North, South, East, West}

// String returns the lane name, e.g. "North"
func (l LaneID) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LaneID(%d)", int(l))
	}
	return laneNames[l]
}

// Valid reports whether l is one of the four lanes
func (l LaneID) Valid() bool {
	return l >= 0 && int(l) < LaneCount
}

// MarshalText encodes the lane by name
func (l LaneID) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("domain: invalid lane %d", int(l))
	}
	return []byte(laneNames[l]), nil
}

// UnmarshalText decodes a lane name
func (l *LaneID) UnmarshalText(text []byte) error {
	lane, err := ParseLane(string(text))
	if err != nil {
		return err
	}
	*l = lane
	return nil
}

// ParseLane converts a lane name into a LaneID
func ParseLane(name string) (LaneID, error) {
	for i, n := range laneNames {
		if n == name {
			return LaneID(i), nil
		}
	}
	return 0, fmt.Errorf("domain: unknown lane %q", name)
}

// LaneCounts holds the latest vehicle count of every lane.
// The array form guarantees all four lanes are always present.
type LaneCounts [LaneCount]int

// Total returns the sum of all lane counts
func (c LaneCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// MarshalJSON encodes the counts as {"North": n, ...}
func (c LaneCounts) MarshalJSON() ([]byte, error) {
	return marshalLaneValues(c)
}

// UnmarshalJSON decodes {"North": n, ...}; missing lanes decode as 0
func (c *LaneCounts) UnmarshalJSON(data []byte) error {
	return unmarshalLaneValues(data, (*[LaneCount]int)(c))
}

// TimingPlan holds the green duration in seconds of every lane
type TimingPlan [LaneCount]int

// Total returns the sum of all durations. Clamping means it need not equal
// the nominal cycle length.
func (p TimingPlan) Total() int {
	total := 0
	for _, s := range p {
		total += s
	}
	return total
}

// MarshalJSON encodes the plan as {"North": seconds, ...}
func (p TimingPlan) MarshalJSON() ([]byte, error) {
	return marshalLaneValues(p)
}

// UnmarshalJSON decodes {"North": seconds, ...}
func (p *TimingPlan) UnmarshalJSON(data []byte) error {
	return unmarshalLaneValues(data, (*[LaneCount]int)(p))
}

// DensityLevel is a coarse, relative traffic label for a lane
type DensityLevel string

const (
	DensityLow    DensityLevel = "Low"
	DensityMedium DensityLevel = "Medium"
	DensityHigh   DensityLevel = "High"
)

// DensityLevels holds one level per lane
type DensityLevels [LaneCount]DensityLevel

// MarshalJSON encodes the levels as {"North": "High", ...}
func (d DensityLevels) MarshalJSON() ([]byte, error) {
	m := make(map[string]DensityLevel, LaneCount)
	for i, lvl := range d {
		m[laneNames[i]] = lvl
	}
	return json.Marshal(m)
}

func marshalLaneValues(values [LaneCount]int) ([]byte, error) {
	m := make(map[string]int, LaneCount)
	for i, v := range values {
		m[laneNames[i]] = v
	}
	return json.Marshal(m)
}

func unmarshalLaneValues(data []byte, dst *[LaneCount]int) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out [LaneCount]int
	for name, v := range m {
		lane, err := ParseLane(name)
		if err != nil {
			return err
		}
		out[lane] = v
	}
	*dst = out
	return nil
}
