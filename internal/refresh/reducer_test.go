package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

func readyState(gen uint64) State {
	return State{
		Phase:         models.PhaseReady,
		EntityID:      "12951",
		SessionID:     "s1",
		Snapshot:      &models.Snapshot{EntityID: "12951", DisplayName: "Rajdhani"},
		LastUpdatedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Generation:    gen,
	}
}

func TestReduce(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 0, 30, 0, time.UTC)
	fresh := &models.Snapshot{EntityID: "12951", DisplayName: "Rajdhani", DistanceTraveled: 80}
	notFound := models.FetchFailure{Kind: "not_found", Message: "Train 99999 was not found."}

	fetchingBackground := readyState(3)
	fetchingBackground.Phase = models.PhaseFetchingBackground

	tests := []struct {
		name  string
		state State
		event Event
		want  State
	}{
		{
			name:  "submit from idle",
			state: Initial(),
			event: Submit{EntityID: " 12951 ", SessionID: "s1"},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "12951", SessionID: "s1", Generation: 1},
		},
		{
			name:  "submit from ready clears session",
			state: readyState(3),
			event: Submit{EntityID: "22221", SessionID: "s2"},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "22221", SessionID: "s2", Generation: 4},
		},
		{
			name: "submit from error clears failure",
			state: State{
				Phase: models.PhaseErrorShown, EntityID: "99999", Err: &notFound, Generation: 2,
			},
			event: Submit{EntityID: "12951", SessionID: "s3"},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "12951", SessionID: "s3", Generation: 3},
		},
		{
			name:  "foreground success",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "12951", Generation: 1},
			event: Succeeded{Generation: 1, Snapshot: fresh, At: at},
			want: State{
				Phase: models.PhaseReady, EntityID: "12951", Snapshot: fresh, LastUpdatedAt: at, Generation: 1,
			},
		},
		{
			name:  "foreground failure",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "99999", Generation: 1},
			event: Failed{Generation: 1, Failure: notFound},
			want:  State{Phase: models.PhaseErrorShown, EntityID: "99999", Err: &notFound, Generation: 1},
		},
		{
			name:  "tick in ready",
			state: readyState(3),
			event: Tick{},
			want:  fetchingBackground,
		},
		{
			name:  "tick while fetching in background",
			state: fetchingBackground,
			event: Tick{},
			want:  fetchingBackground,
		},
		{
			name:  "tick while fetching in foreground",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
			event: Tick{},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
		},
		{
			name:  "tick in idle",
			state: Initial(),
			event: Tick{},
			want:  Initial(),
		},
		{
			name:  "tick in error",
			state: State{Phase: models.PhaseErrorShown, EntityID: "1", Err: &notFound, Generation: 1},
			event: Tick{},
			want:  State{Phase: models.PhaseErrorShown, EntityID: "1", Err: &notFound, Generation: 1},
		},
		{
			name:  "background success replaces snapshot",
			state: fetchingBackground,
			event: Succeeded{Generation: 3, Snapshot: fresh, At: at},
			want: State{
				Phase: models.PhaseReady, EntityID: "12951", SessionID: "s1", Snapshot: fresh, LastUpdatedAt: at, Generation: 3,
			},
		},
		{
			name:  "background failure is silent",
			state: fetchingBackground,
			event: Failed{Generation: 3, Failure: models.FetchFailure{Kind: "network_error"}},
			want:  readyState(3),
		},
		{
			name:  "stale success discarded",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "22221", Generation: 4},
			event: Succeeded{Generation: 3, Snapshot: fresh, At: at},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "22221", Generation: 4},
		},
		{
			name:  "stale failure discarded",
			state: readyState(5),
			event: Failed{Generation: 4, Failure: notFound},
			want:  readyState(5),
		},
		{
			name:  "completion after back discarded",
			state: State{Phase: models.PhaseIdle, Generation: 4},
			event: Succeeded{Generation: 3, Snapshot: fresh, At: at},
			want:  State{Phase: models.PhaseIdle, Generation: 4},
		},
		{
			name:  "nil snapshot ignored",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
			event: Succeeded{Generation: 1, At: at},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
		},
		{
			name:  "manual refresh in ready",
			state: readyState(3),
			event: ManualRefresh{},
			want: func() State {
				s := fetchingBackground
				s.Manual = true
				return s
			}(),
		},
		{
			name:  "manual refresh joins background fetch",
			state: fetchingBackground,
			event: ManualRefresh{},
			want: func() State {
				s := fetchingBackground
				s.Manual = true
				return s
			}(),
		},
		{
			name:  "manual refresh retries after error",
			state: State{Phase: models.PhaseErrorShown, EntityID: "12951", SessionID: "s1", Err: &notFound, Generation: 2},
			event: ManualRefresh{},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "12951", SessionID: "s1", Generation: 3},
		},
		{
			name:  "manual refresh in idle",
			state: Initial(),
			event: ManualRefresh{},
			want:  Initial(),
		},
		{
			name:  "manual refresh while searching",
			state: State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
			event: ManualRefresh{},
			want:  State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1},
		},
		{
			name:  "back from ready",
			state: readyState(3),
			event: NavigateBack{},
			want:  State{Phase: models.PhaseIdle, Generation: 4},
		},
		{
			name:  "back while fetching",
			state: fetchingBackground,
			event: NavigateBack{},
			want:  State{Phase: models.PhaseIdle, Generation: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state
			got := Reduce(tt.state, tt.event)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, tt.state)
		})
	}
}

func TestManualRefreshClearedOnCompletion(t *testing.T) {
	s := Reduce(readyState(1), ManualRefresh{})
	assert.True(t, s.Manual)
	assert.False(t, s.Phase.Blocking())
	assert.True(t, s.Phase.Updating())

	done := Reduce(s, Succeeded{Generation: 1, Snapshot: &models.Snapshot{EntityID: "12951"}, At: time.Now()})
	assert.False(t, done.Manual)
	assert.Equal(t, models.PhaseReady, done.Phase)

	failed := Reduce(s, Failed{Generation: 1})
	assert.False(t, failed.Manual)
	assert.Equal(t, models.PhaseReady, failed.Phase)
}

func TestDiff(t *testing.T) {
	searching := State{Phase: models.PhaseFetchingForeground, EntityID: "1", Generation: 1}
	background := readyState(1)
	background.Phase = models.PhaseFetchingBackground

	tests := []struct {
		name string
		prev State
		next State
		want transition
	}{
		{
			name: "submit",
			prev: Initial(),
			next: searching,
			want: transition{fetch: true, stopTimer: true},
		},
		{
			name: "resubmit while searching",
			prev: searching,
			next: State{Phase: models.PhaseFetchingForeground, EntityID: "2", Generation: 2},
			want: transition{fetch: true, cancel: true, stopTimer: true},
		},
		{
			name: "foreground success arms timer",
			prev: searching,
			next: readyState(1),
			want: transition{cancel: true, armTimer: true},
		},
		{
			name: "foreground failure",
			prev: searching,
			next: State{Phase: models.PhaseErrorShown, EntityID: "1", Generation: 1},
			want: transition{cancel: true, stopTimer: true},
		},
		{
			name: "tick",
			prev: readyState(1),
			next: background,
			want: transition{fetch: true, background: true},
		},
		{
			name: "background completion keeps timer",
			prev: background,
			next: readyState(1),
			want: transition{cancel: true},
		},
		{
			name: "manual refresh coalesced",
			prev: background,
			next: func() State { s := background; s.Manual = true; return s }(),
			want: transition{},
		},
		{
			name: "back",
			prev: background,
			next: State{Phase: models.PhaseIdle, Generation: 2},
			want: transition{cancel: true, stopTimer: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diff(tt.prev, tt.next))
		})
	}
}
