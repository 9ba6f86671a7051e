// Package route builds the canonical station sequence for a train's journey.
package route

import (
	"sort"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// Consolidate merges visited and upcoming stations into one sequence ordered by
// distance from source, keeping the first station seen for each code.
//
// Visited stations precede upcoming ones before sorting so that stations at the
// same distance keep that order. The inputs are not modified.
func Consolidate(visited, upcoming []models.Station) []models.Station {
	all := make([]models.Station, 0, len(visited)+len(upcoming))
	all = append(all, visited...)
	all = append(all, upcoming...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DistanceFromSource < all[j].DistanceFromSource
	})

	seen := make(map[string]bool, len(all))
	result := make([]models.Station, 0, len(all))
	for _, station := range all {
		if seen[station.Code] {
			continue
		}
		seen[station.Code] = true
		result = append(result, station)
	}

	return result
}

// Classify marks each ordered station as passed, next, or upcoming for a
// located position. Stations at or before the segment start are passed; the
// station closing the current segment is next.
func Classify(ordered []models.Station, pos models.Position) []models.StationStatus {
	statuses := make([]models.StationStatus, len(ordered))
	for i := range ordered {
		switch {
		case i <= pos.SegmentIndex:
			statuses[i] = models.StationPassed
		case i == pos.SegmentIndex+1:
			statuses[i] = models.StationNext
		default:
			statuses[i] = models.StationUpcoming
		}
	}
	return statuses
}
