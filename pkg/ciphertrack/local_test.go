package ciphertrack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/jusunglee/ciphertrack-go/internal/feed"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/internal/position"
	"github.com/jusunglee/ciphertrack-go/internal/settings"
)

func newTestClient(t *testing.T, prefs settings.Store) (*LocalClient, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("train_no") != "12951" {
			w.Write([]byte(`{"success": false}`))
			return
		}
		w.Write(feed.SamplePayload("12951", 477))
	}))
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.UpstreamURL = srv.URL + "/train.php?train_no={id}"
	config.ProxyURL = ""
	config.UpdateInterval = time.Hour
	config.Settings = prefs
	config.Logger = zap.NewNop().Sugar()

	client, err := NewLocal(config)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, &hits
}

func waitPhase(t *testing.T, c *LocalClient, phase models.Phase) models.View {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.View().State.Phase == phase
	}, 2*time.Second, 5*time.Millisecond)
	return c.View()
}

func TestLocalClientSearch(t *testing.T) {
	client, hits := newTestClient(t, nil)

	sessionID, err := client.SubmitSearch(" 12951 ")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	view := waitPhase(t, client, models.PhaseReady)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, sessionID, view.State.SessionID)
	assert.Equal(t, "Mumbai Rajdhani", view.State.Snapshot.DisplayName)

	codes := []string{}
	for _, s := range view.Route {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []string{"NDLS", "KOTA", "RTM", "BRC", "MMCT"}, codes)
	assert.Equal(t, 1, view.Position.SegmentIndex)
	assert.Equal(t, "Kota Jn", view.CurrentLocation)
	assert.True(t, view.Delayed)
	assert.Equal(t, uint64(1), view.RecenterSeq)
	assert.False(t, client.GetLastUpdate().IsZero())

	stops := client.Route()
	require.Len(t, stops, 5)
	assert.Equal(t, models.StationPassed, stops[0].Status)
	assert.Equal(t, models.StationNext, stops[2].Status)
	assert.Equal(t, view.Position, client.Position())

	// polling readers see the same sequence until another train is centered
	for i := 0; i < 5; i++ {
		current := client.View()
		assert.Equal(t, uint64(1), current.ConvertToResponse().RecenterSeq)
	}

	data, err := client.Feed()
	require.NoError(t, err)
	var msg gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(data, &msg))
	assert.Len(t, msg.GetEntity(), 2)

	client.NavigateBack()
	view = waitPhase(t, client, models.PhaseIdle)
	assert.Nil(t, view.State.Snapshot)
	assert.Empty(t, view.Route)
}

func TestLocalClientNotFound(t *testing.T) {
	client, _ := newTestClient(t, nil)

	_, err := client.SubmitSearch("99999")
	require.NoError(t, err)

	view := waitPhase(t, client, models.PhaseErrorShown)
	require.NotNil(t, view.State.Err)
	assert.Equal(t, "not_found", view.State.Err.Kind)
}

func TestLocalClientEmptySearch(t *testing.T) {
	client, hits := newTestClient(t, nil)

	_, err := client.SubmitSearch("   ")
	assert.ErrorIs(t, err, ErrEmptyTrainNumber)
	assert.Equal(t, models.PhaseIdle, client.View().State.Phase)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestLocalClientSettings(t *testing.T) {
	prefs := settings.NewMemory()
	require.NoError(t, prefs.Save(context.Background(), settings.Settings{CompactMode: true}))

	client, _ := newTestClient(t, prefs)
	ctx := context.Background()

	loaded, err := client.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.CompactMode)

	_, err = client.SubmitSearch("12951")
	require.NoError(t, err)
	view := waitPhase(t, client, models.PhaseReady)
	compactOffset := view.Position.NormalizedProgress
	assert.InDelta(t, position.CompactLayout.LeadingOffset+
		(1+12.0/266.0)*position.CompactLayout.UnitSize, compactOffset, 1e-9)

	require.NoError(t, client.UpdateSettings(ctx, settings.Settings{DarkMode: true}))
	require.Eventually(t, func() bool {
		return client.View().Position.NormalizedProgress > compactOffset
	}, 2*time.Second, 5*time.Millisecond)

	loaded, err = client.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{DarkMode: true}, loaded)
}
