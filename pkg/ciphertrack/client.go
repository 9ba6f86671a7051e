package ciphertrack

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jusunglee/ciphertrack-go/internal/feed"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/internal/refresh"
	"github.com/jusunglee/ciphertrack-go/internal/settings"
)

// ErrEmptyTrainNumber is returned when a search has no train number
var ErrEmptyTrainNumber = errors.New("train number is required")

// Client defines the interface for tracking a train
// Abstracts the tracking session behind the inputs and outputs a display needs
type Client interface {
	SubmitSearch(trainNumber string) (sessionID string, err error)
	ManualRefresh()
	NavigateBack()

	View() models.View
	Route() []models.RouteStop
	Position() models.Position

	Settings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, s settings.Settings) error

	// Feed returns the current view as a GTFS-Realtime FeedMessage
	Feed() ([]byte, error)

	GetLastUpdate() time.Time
}

// Config holds configuration for the tracking client
type Config struct {
	UpstreamURL    string
	ProxyURL       string
	Timeout        time.Duration
	UpdateInterval time.Duration

	// Settings defaults to an in-memory store
	Settings settings.Store
	// Publishers receive every view in addition to the client's own store
	Publishers []refresh.Publisher
	Logger     *zap.SugaredLogger
}

// DefaultConfig returns default configuration
// 30-second update interval matches the live status source's refresh rate
func DefaultConfig() Config {
	return Config{
		UpstreamURL:    feed.DefaultUpstreamURL,
		ProxyURL:       feed.DefaultProxyURL,
		Timeout:        15 * time.Second,
		UpdateInterval: refresh.DefaultInterval,
	}
}
