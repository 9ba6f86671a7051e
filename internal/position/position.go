// Package position maps a train's distance traveled onto its ordered route.
package position

import (
	"math"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// Layout converts route progress into a visual offset
type Layout struct {
	// LeadingOffset is the offset of the first station
	LeadingOffset float64
	// UnitSize is the offset between two consecutive stations
	UnitSize float64
}

var (
	// DefaultLayout matches the regular timeline item height
	DefaultLayout = Layout{LeadingOffset: 24, UnitSize: 100}
	// CompactLayout matches the compact timeline item height
	CompactLayout = Layout{LeadingOffset: 24, UnitSize: 80}
)

// ForCompact returns the layout for the compact display preference
func ForCompact(compact bool) Layout {
	if compact {
		return CompactLayout
	}
	return DefaultLayout
}

// Locate finds the train on an ordered route using DefaultLayout
func Locate(ordered []models.Station, distanceTraveled float64) models.Position {
	return DefaultLayout.Locate(ordered, distanceTraveled)
}

// Locate finds the segment containing distanceTraveled and how far along it the
// train is. Before the first station (or on an empty route) the segment index is
// -1; at or past the last station the train is pinned to it with fraction 0.
func (l Layout) Locate(ordered []models.Station, distanceTraveled float64) models.Position {
	d := distanceTraveled
	if math.IsNaN(d) || d < 0 {
		d = 0
	}

	idx := -1
	for i, station := range ordered {
		if station.DistanceFromSource <= d {
			idx = i
		}
	}

	pos := models.Position{SegmentIndex: idx}
	if idx >= 0 && idx < len(ordered)-1 {
		start := ordered[idx].DistanceFromSource
		diff := ordered[idx+1].DistanceFromSource - start
		if diff > 0 {
			pos.Fraction = clamp((d-start)/diff, 0, 1)
		}
	}

	pos.NormalizedProgress = l.offset(pos, len(ordered))
	return pos
}

func (l Layout) offset(pos models.Position, n int) float64 {
	steps := float64(pos.SegmentIndex) + pos.Fraction
	if steps < 0 {
		steps = 0
	}
	if last := float64(n - 1); n > 0 && steps > last {
		steps = last
	}
	return l.LeadingOffset + steps*l.UnitSize
}

func clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
