package ciphertrack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jusunglee/ciphertrack-go/internal/feed"
	"github.com/jusunglee/ciphertrack-go/internal/gtfsrt"
	"github.com/jusunglee/ciphertrack-go/internal/logging"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/internal/position"
	"github.com/jusunglee/ciphertrack-go/internal/refresh"
	"github.com/jusunglee/ciphertrack-go/internal/settings"
	"github.com/jusunglee/ciphertrack-go/internal/store"
)

var _ Client = (*LocalClient)(nil)

// LocalClient implements the Client interface in process
// Owns the refresh controller, the published view store and the settings store
type LocalClient struct {
	store      *store.Store
	controller *refresh.Controller
	settings   settings.Store
	logger     *zap.SugaredLogger
}

// NewLocal creates a new local tracking client
// Loads saved settings so the first session starts with the right layout
func NewLocal(config Config, opts ...refresh.Option) (*LocalClient, error) {
	return newLocal(config, feed.NewFetcher(config.UpstreamURL, config.ProxyURL, config.Timeout), opts...)
}

func newLocal(config Config, fetcher refresh.Fetcher, opts ...refresh.Option) (*LocalClient, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	prefs := config.Settings
	if prefs == nil {
		prefs = settings.NewMemory()
	}

	saved, err := prefs.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	s := store.NewStore()
	options := []refresh.Option{
		refresh.WithInterval(config.UpdateInterval),
		refresh.WithLogger(logger),
		refresh.WithLayout(position.ForCompact(saved.CompactMode)),
		refresh.WithPublisher(s),
	}
	for _, p := range config.Publishers {
		options = append(options, refresh.WithPublisher(p))
	}
	options = append(options, opts...)

	return &LocalClient{
		store:      s,
		controller: refresh.New(fetcher, options...),
		settings:   prefs,
		logger:     logger,
	}, nil
}

// Close gracefully shuts down the local client
// Must be called to stop background goroutines and prevent leaks
func (c *LocalClient) Close() {
	c.controller.Close()
	if err := c.settings.Close(); err != nil {
		c.logger.Warnw("Failed to close settings store", "error", err)
	}
}

func (c *LocalClient) SubmitSearch(trainNumber string) (string, error) {
	trainNumber = strings.TrimSpace(trainNumber)
	if trainNumber == "" {
		return "", ErrEmptyTrainNumber
	}
	return c.controller.Submit(trainNumber), nil
}

func (c *LocalClient) ManualRefresh() {
	c.controller.ManualRefresh()
}

func (c *LocalClient) NavigateBack() {
	c.controller.NavigateBack()
}

func (c *LocalClient) View() models.View {
	return c.store.Current()
}

func (c *LocalClient) Route() []models.RouteStop {
	return c.store.Route()
}

func (c *LocalClient) Position() models.Position {
	return c.store.Position()
}

// Subscribe streams published views until cancel is called
func (c *LocalClient) Subscribe() (<-chan models.View, func()) {
	return c.store.Subscribe()
}

func (c *LocalClient) Settings(ctx context.Context) (settings.Settings, error) {
	return c.settings.Load(ctx)
}

// UpdateSettings saves s and applies the layout preference to the current session
func (c *LocalClient) UpdateSettings(ctx context.Context, s settings.Settings) error {
	if err := c.settings.Save(ctx, s); err != nil {
		return err
	}
	c.controller.SetCompact(s.CompactMode)
	return nil
}

func (c *LocalClient) Feed() ([]byte, error) {
	return gtfsrt.Marshal(c.store.Current(), time.Now())
}

func (c *LocalClient) GetLastUpdate() time.Time {
	return c.store.GetLastUpdate()
}
