package store

import (
	"sync"
	"time"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// Store holds the most recently published view for readers
type Store struct {
	mu          sync.RWMutex
	view        models.View
	lastUpdate  time.Time
	subscribers map[int]chan models.View
	nextID      int
}

// NewStore creates a new store instance
func NewStore() *Store {
	return &Store{
		view:        models.View{State: models.RefreshState{Phase: models.PhaseIdle}},
		subscribers: make(map[int]chan models.View),
	}
}

// Publish replaces the current view and notifies subscribers.
// Slow subscribers miss intermediate views but always receive the latest one.
func (s *Store) Publish(view models.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = view
	s.lastUpdate = time.Now()

	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- view
	}
}

// Current returns a copy of the current view
func (s *Store) Current() models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyView(s.view)
}

// Route returns the consolidated route of the current view with each
// station's status
func (s *Store) Route() []models.RouteStop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.RouteStop, len(s.view.Route))
	for i, station := range s.view.Route {
		result[i] = models.RouteStop{Station: station, Status: models.StationUpcoming}
		if i < len(s.view.Statuses) {
			result[i].Status = s.view.Statuses[i]
		}
	}
	return result
}

// Position returns the train's position on the current route
func (s *Store) Position() models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Position
}

// GetLastUpdate returns when a view was last published
func (s *Store) GetLastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Subscribe returns a channel receiving each published view and a function
// that ends the subscription
func (s *Store) Subscribe() (<-chan models.View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan models.View, 1)
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func copyView(v models.View) models.View {
	out := v
	if v.Route != nil {
		out.Route = make([]models.Station, len(v.Route))
		copy(out.Route, v.Route)
	}
	if v.Statuses != nil {
		out.Statuses = make([]models.StationStatus, len(v.Statuses))
		copy(out.Statuses, v.Statuses)
	}
	return out
}
