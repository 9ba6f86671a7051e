package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jusunglee/ciphertrack-go/internal/feed"
	"github.com/jusunglee/ciphertrack-go/internal/logging"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/internal/position"
	"github.com/jusunglee/ciphertrack-go/internal/route"
)

// Fetcher retrieves the latest snapshot for a train
type Fetcher interface {
	Fetch(ctx context.Context, entityID string) (*models.Snapshot, error)
}

// Publisher receives every view the controller produces. Publish is called
// with the controller locked and must not call back into it.
type Publisher interface {
	Publish(view models.View)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(view models.View)

func (f PublisherFunc) Publish(view models.View) { f(view) }

// Option configures a Controller
type Option func(*Controller)

// WithInterval sets the background poll interval
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithTickerFactory replaces the ticker used by the poll schedule
func WithTickerFactory(f TickerFactory) Option {
	return func(c *Controller) { c.tickers = f }
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock sets the clock used to stamp successful refreshes
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithPublisher registers a view publisher
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publishers = append(c.publishers, p) }
}

// WithLayout sets the initial route layout
func WithLayout(l position.Layout) Option {
	return func(c *Controller) { c.layout = l }
}

// Controller runs one tracking session at a time
type Controller struct {
	fetcher    Fetcher
	schedule   *Schedule
	logger     *zap.SugaredLogger
	now        func() time.Time
	publishers []Publisher
	interval   time.Duration
	tickers    TickerFactory

	mu       sync.Mutex
	state    State
	view     models.View
	layout   position.Layout
	centerer position.Centerer
	recenter uint64
	cancel   context.CancelFunc
	closed   bool
	inflight sync.WaitGroup
}

// New creates an idle controller
func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		now:      time.Now,
		interval: DefaultInterval,
		layout:   position.DefaultLayout,
		state:    Initial(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetLogger()
	}
	c.schedule = NewSchedule(c.interval, c.tickers)
	c.view = buildView(c.state, c.layout, 0)
	return c
}

// Submit starts tracking entityID and returns the new session ID
func (c *Controller) Submit(entityID string) string {
	sessionID := uuid.NewString()
	c.dispatch(Submit{EntityID: entityID, SessionID: sessionID})
	return sessionID
}

// ManualRefresh asks for an immediate refresh of the current train
func (c *Controller) ManualRefresh() {
	c.dispatch(ManualRefresh{})
}

// NavigateBack ends the current session
func (c *Controller) NavigateBack() {
	c.dispatch(NavigateBack{})
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the last published view
func (c *Controller) View() models.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetLayout changes the route layout and republishes the view
func (c *Controller) SetLayout(l position.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.layout == l || c.closed {
		c.layout = l
		return
	}
	c.layout = l
	c.view = buildView(c.state, c.layout, c.recenter)
	c.publish()
}

// SetCompact selects the compact or default layout
func (c *Controller) SetCompact(compact bool) {
	c.SetLayout(position.ForCompact(compact))
}

// Close stops polling, cancels any in-flight fetch and waits for both to finish
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.schedule.Stop()
	c.mu.Unlock()

	c.inflight.Wait()
	c.schedule.Wait()
}

func (c *Controller) dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	prev := c.state
	next := Reduce(prev, ev)
	if next == prev {
		c.logIgnored(prev, ev)
		return
	}
	c.state = next

	t := diff(prev, next)
	if t.cancel && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if t.stopTimer {
		c.schedule.Stop()
	}
	if t.armTimer {
		c.schedule.Start(func() { c.dispatch(Tick{}) })
	}
	if t.fetch {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.inflight.Add(1)
		go c.fetch(ctx, next.EntityID, next.Generation, t.background)
	}
	if _, ok := ev.(Submit); ok {
		c.centerer.Reset()
	}

	c.logger.Debugw("Refresh state changed",
		"from", prev.Phase,
		"to", next.Phase,
		"train", next.EntityID,
		"generation", next.Generation,
	)

	if c.centerer.Observe(next.EntityID, next.Snapshot != nil) {
		c.recenter++
	}
	c.view = buildView(next, c.layout, c.recenter)
	c.publish()
}

func (c *Controller) fetch(ctx context.Context, entityID string, generation uint64, background bool) {
	defer c.inflight.Done()

	start := time.Now()
	snap, err := c.fetcher.Fetch(ctx, entityID)
	if ctx.Err() != nil {
		c.logger.Debugw("Fetch cancelled", "train", entityID, "generation", generation)
		return
	}

	if err != nil {
		failure := toFailure(err)
		if background {
			c.logger.Warnw("Background refresh failed",
				"train", entityID,
				"kind", failure.Kind,
				"error", err,
			)
		} else {
			c.logger.Infow("Search failed",
				"train", entityID,
				"kind", failure.Kind,
				"error", err,
			)
		}
		c.dispatch(Failed{Generation: generation, Failure: failure})
		return
	}

	c.logger.Debugw("Fetched snapshot",
		"train", entityID,
		"background", background,
		"duration", time.Since(start),
	)
	c.dispatch(Succeeded{Generation: generation, Snapshot: snap, At: c.now()})
}

func (c *Controller) publish() {
	for _, p := range c.publishers {
		p.Publish(c.view)
	}
}

func (c *Controller) logIgnored(s State, ev Event) {
	switch e := ev.(type) {
	case Succeeded:
		if e.Generation != s.Generation {
			c.logger.Debugw("Discarding stale snapshot", "generation", e.Generation, "current", s.Generation)
		}
	case Failed:
		if e.Generation != s.Generation {
			c.logger.Debugw("Discarding stale failure", "generation", e.Generation, "current", s.Generation)
		}
	}
}

func toFailure(err error) models.FetchFailure {
	var fe *feed.FetchError
	if errors.As(err, &fe) {
		return models.FetchFailure{Kind: fe.KindName(), Message: fe.UserMessage()}
	}
	return models.FetchFailure{
		Kind:    "network_error",
		Message: "Could not reach the live status service. Check your connection and retry.",
	}
}

func buildView(s State, layout position.Layout, recenterSeq uint64) models.View {
	v := models.View{State: s, RecenterSeq: recenterSeq}

	snap := s.Snapshot
	if snap == nil {
		v.Position = layout.Locate(nil, 0)
		return v
	}

	v.Route = route.Consolidate(snap.VisitedStations, snap.UpcomingStations)
	v.Position = layout.Locate(v.Route, snap.DistanceTraveled)
	v.Statuses = route.Classify(v.Route, v.Position)
	v.ProgressPercent = snap.ProgressPercent()
	v.Delayed = snap.IsDelayed()
	v.CurrentLocation = snap.CurrentLocationLabel()
	return v
}
