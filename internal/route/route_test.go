package route

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

func st(code string, dist float64) models.Station {
	return models.Station{Code: code, Name: code, DistanceFromSource: dist}
}

func codes(stations []models.Station) []string {
	out := make([]string, len(stations))
	for i, s := range stations {
		out[i] = s.Code
	}
	return out
}

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name     string
		visited  []models.Station
		upcoming []models.Station
		expected []string
	}{
		{
			name:     "already ordered",
			visited:  []models.Station{st("A", 0), st("B", 50)},
			upcoming: []models.Station{st("C", 120), st("D", 200)},
			expected: []string{"A", "B", "C", "D"},
		},
		{
			name:     "unsorted input",
			visited:  []models.Station{st("B", 50), st("A", 0)},
			upcoming: []models.Station{st("D", 200), st("C", 120)},
			expected: []string{"A", "B", "C", "D"},
		},
		{
			name:     "current station in both lists",
			visited:  []models.Station{st("A", 0), st("B", 50)},
			upcoming: []models.Station{st("B", 50), st("C", 120)},
			expected: []string{"A", "B", "C"},
		},
		{
			name:     "equal distances keep visited first",
			visited:  []models.Station{st("A", 0), st("X", 80)},
			upcoming: []models.Station{st("Y", 80), st("Z", 90)},
			expected: []string{"A", "X", "Y", "Z"},
		},
		{
			name:     "empty upcoming",
			visited:  []models.Station{st("A", 0), st("B", 50)},
			expected: []string{"A", "B"},
		},
		{
			name:     "both empty",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consolidate(tt.visited, tt.upcoming)
			assert.Equal(t, tt.expected, codes(got))
		})
	}
}

func TestConsolidateKeepsFirstOccurrenceAfterSort(t *testing.T) {
	visited := []models.Station{{Code: "B", Name: "visited copy", DistanceFromSource: 50}}
	upcoming := []models.Station{{Code: "B", Name: "upcoming copy", DistanceFromSource: 50}}

	got := Consolidate(visited, upcoming)

	require.Len(t, got, 1)
	assert.Equal(t, "visited copy", got[0].Name)
}

func TestConsolidateDoesNotMutateInputs(t *testing.T) {
	visited := []models.Station{st("C", 120), st("A", 0)}
	upcoming := []models.Station{st("B", 50)}

	Consolidate(visited, upcoming)

	assert.Equal(t, []string{"C", "A"}, codes(visited))
	assert.Equal(t, []string{"B"}, codes(upcoming))
}

func TestConsolidateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	randomList := func() []models.Station {
		n := rng.Intn(8)
		out := make([]models.Station, n)
		for i := range out {
			out[i] = st(pool[rng.Intn(len(pool))], float64(rng.Intn(5)*25))
		}
		return out
	}

	for i := 0; i < 200; i++ {
		visited, upcoming := randomList(), randomList()
		got := Consolidate(visited, upcoming)

		seen := map[string]bool{}
		for j, s := range got {
			require.False(t, seen[s.Code], "duplicate code %s in %v", s.Code, codes(got))
			seen[s.Code] = true
			if j > 0 {
				require.LessOrEqual(t, got[j-1].DistanceFromSource, s.DistanceFromSource)
			}
		}

		assert.Equal(t, got, Consolidate(got, nil), "consolidate should be idempotent")
	}
}

func TestClassify(t *testing.T) {
	ordered := []models.Station{st("A", 0), st("B", 100), st("C", 250), st("D", 300)}

	tests := []struct {
		name     string
		pos      models.Position
		expected []models.StationStatus
	}{
		{
			name:     "before start",
			pos:      models.Position{SegmentIndex: -1},
			expected: []models.StationStatus{models.StationNext, models.StationUpcoming, models.StationUpcoming, models.StationUpcoming},
		},
		{
			name:     "between B and C",
			pos:      models.Position{SegmentIndex: 1, Fraction: 0.3},
			expected: []models.StationStatus{models.StationPassed, models.StationPassed, models.StationNext, models.StationUpcoming},
		},
		{
			name:     "pinned at end",
			pos:      models.Position{SegmentIndex: 3},
			expected: []models.StationStatus{models.StationPassed, models.StationPassed, models.StationPassed, models.StationPassed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(ordered, tt.pos))
		})
	}
}
