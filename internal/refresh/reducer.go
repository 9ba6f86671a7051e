// Package refresh owns the lifecycle of one tracking session: the foreground
// search, periodic background polling, manual refreshes and navigation back.
//
// All state transitions happen in Reduce, which is pure. The Controller feeds
// it events and performs the effects implied by each transition.
package refresh

import (
	"strings"
	"time"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// State is the controller state. It is a value; Reduce never mutates its input.
type State = models.RefreshState

// Event is an input to Reduce
type Event interface {
	event()
}

// Submit starts a new session for a train
type Submit struct {
	EntityID  string
	SessionID string
}

// Tick is a poll timer firing
type Tick struct{}

// ManualRefresh is a user-requested refresh
type ManualRefresh struct{}

// NavigateBack leaves the current session
type NavigateBack struct{}

// Succeeded is a fetch completion carrying a snapshot
type Succeeded struct {
	Generation uint64
	Snapshot   *models.Snapshot
	At         time.Time
}

// Failed is a fetch completion carrying an error
type Failed struct {
	Generation uint64
	Failure    models.FetchFailure
}

func (Submit) event()        {}
func (Tick) event()          {}
func (ManualRefresh) event() {}
func (NavigateBack) event()  {}
func (Succeeded) event()     {}
func (Failed) event()        {}

// Initial returns the state of a controller with no session
func Initial() State {
	return State{Phase: models.PhaseIdle}
}

// Reduce computes the next state
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Submit:
		return State{
			Phase:      models.PhaseFetchingForeground,
			EntityID:   strings.TrimSpace(e.EntityID),
			SessionID:  e.SessionID,
			Generation: s.Generation + 1,
		}

	case Tick:
		if s.Phase != models.PhaseReady {
			return s
		}
		s.Phase = models.PhaseFetchingBackground
		s.Manual = false
		return s

	case ManualRefresh:
		switch s.Phase {
		case models.PhaseReady, models.PhaseFetchingBackground:
			// a refresh already in flight absorbs the request
			s.Phase = models.PhaseFetchingBackground
			s.Manual = true
		case models.PhaseErrorShown:
			s.Phase = models.PhaseFetchingForeground
			s.Err = nil
			s.Manual = false
			s.Generation++
		}
		return s

	case NavigateBack:
		return State{
			Phase:      models.PhaseIdle,
			Generation: s.Generation + 1,
		}

	case Succeeded:
		if e.Generation != s.Generation || e.Snapshot == nil {
			return s
		}
		switch s.Phase {
		case models.PhaseFetchingForeground, models.PhaseFetchingBackground:
			s.Phase = models.PhaseReady
			s.Snapshot = e.Snapshot
			s.Err = nil
			s.LastUpdatedAt = e.At
			s.Manual = false
		}
		return s

	case Failed:
		if e.Generation != s.Generation {
			return s
		}
		switch s.Phase {
		case models.PhaseFetchingForeground:
			failure := e.Failure
			s.Phase = models.PhaseErrorShown
			s.Snapshot = nil
			s.Err = &failure
		case models.PhaseFetchingBackground:
			// background failures leave the last good snapshot on screen
			s.Phase = models.PhaseReady
			s.Manual = false
		}
		return s
	}

	return s
}

// Fetching reports whether the state has a request in flight
func Fetching(s State) bool {
	return s.Phase == models.PhaseFetchingForeground || s.Phase == models.PhaseFetchingBackground
}

// transition lists the effects implied by moving from prev to next
type transition struct {
	fetch      bool
	cancel     bool
	armTimer   bool
	stopTimer  bool
	background bool
}

func diff(prev, next State) transition {
	var t transition

	sessionChanged := next.Generation != prev.Generation
	if Fetching(next) && (!Fetching(prev) || sessionChanged) {
		t.fetch = true
		t.background = next.Phase == models.PhaseFetchingBackground
	}
	// also releases the context of a request that just completed
	if Fetching(prev) && (sessionChanged || !Fetching(next)) {
		t.cancel = true
	}
	if sessionChanged || next.Phase == models.PhaseIdle || next.Phase == models.PhaseErrorShown {
		t.stopTimer = true
	}
	if prev.Phase == models.PhaseFetchingForeground && next.Phase == models.PhaseReady {
		t.armTimer = true
		t.stopTimer = false
	}

	return t
}
