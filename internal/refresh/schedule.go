package refresh

import (
	"sync"
	"time"
)

// DefaultInterval is the background poll interval
const DefaultInterval = 30 * time.Second

// Ticker is the subset of *time.Ticker the schedule needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Schedule calls a function periodically until stopped. Start and Stop may be
// called any number of times; at most one loop runs at a time.
type Schedule struct {
	interval  time.Duration
	newTicker TickerFactory

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSchedule creates a stopped schedule
func NewSchedule(interval time.Duration, factory TickerFactory) *Schedule {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if factory == nil {
		factory = NewTimeTicker
	}
	return &Schedule{
		interval:  interval,
		newTicker: factory,
	}
}

// Start begins calling fn every interval, replacing any running loop
func (s *Schedule) Start(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	stopCh := make(chan struct{})
	ticker := s.newTicker(s.interval)
	s.stopCh = stopCh

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C():
				// a tick racing with Stop must not fire
				select {
				case <-stopCh:
					return
				default:
				}
				fn()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts the running loop, if any
func (s *Schedule) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active
func (s *Schedule) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// Wait blocks until every stopped loop has exited
func (s *Schedule) Wait() {
	s.wg.Wait()
}

func (s *Schedule) stopLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}
