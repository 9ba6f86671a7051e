// Package gtfsrt exports the tracked train as a GTFS-Realtime feed.
package gtfsrt

import (
	"fmt"
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// Version is the GTFS-Realtime version written in the feed header
const Version = "2.0"

// Build converts a view into a full-dataset FeedMessage. A view without a
// snapshot produces a feed with a header and no entities.
func Build(view models.View, now time.Time) *gtfs.FeedMessage {
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(Version),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(unix(now)),
		},
	}

	snap := view.State.Snapshot
	if snap == nil {
		return msg
	}

	trip := &gtfs.TripDescriptor{
		TripId: proto.String(snap.EntityID),
	}
	if date := serviceDate(snap.StartDate); date != "" {
		trip.StartDate = proto.String(date)
	}

	observed := snap.ObservedAt
	if observed.IsZero() {
		observed = view.State.LastUpdatedAt
	}

	msg.Entity = append(msg.Entity,
		&gtfs.FeedEntity{
			Id:      proto.String(snap.EntityID + ":vehicle"),
			Vehicle: vehiclePosition(view, trip, observed),
		},
		&gtfs.FeedEntity{
			Id:         proto.String(snap.EntityID + ":trip"),
			TripUpdate: tripUpdate(view, trip, observed),
		},
	)

	return msg
}

// Marshal encodes the feed for view
func Marshal(view models.View, now time.Time) ([]byte, error) {
	data, err := proto.Marshal(Build(view, now))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return data, nil
}

func vehiclePosition(view models.View, trip *gtfs.TripDescriptor, observed time.Time) *gtfs.VehiclePosition {
	snap := view.State.Snapshot
	vp := &gtfs.VehiclePosition{
		Trip: trip,
		Vehicle: &gtfs.VehicleDescriptor{
			Id:    proto.String(snap.EntityID),
			Label: proto.String(snap.DisplayName),
		},
	}
	if !observed.IsZero() {
		vp.Timestamp = proto.Uint64(unix(observed))
	}

	n := len(view.Route)
	if n == 0 {
		return vp
	}

	// stop sequences are 1-based route indices
	idx := view.Position.SegmentIndex
	switch {
	case idx >= 0 && view.Position.Fraction == 0:
		vp.CurrentStatus = gtfs.VehiclePosition_STOPPED_AT.Enum()
	default:
		vp.CurrentStatus = gtfs.VehiclePosition_IN_TRANSIT_TO.Enum()
		idx++
	}
	if idx >= n {
		idx = n - 1
	}
	vp.CurrentStopSequence = proto.Uint32(uint32(idx + 1))
	if code := view.Route[idx].Code; code != "" {
		vp.StopId = proto.String(code)
	}

	return vp
}

func tripUpdate(view models.View, trip *gtfs.TripDescriptor, observed time.Time) *gtfs.TripUpdate {
	snap := view.State.Snapshot
	tu := &gtfs.TripUpdate{
		Trip:  trip,
		Delay: proto.Int32(int32(snap.DelayMinutes * 60)),
	}
	if !observed.IsZero() {
		tu.Timestamp = proto.Uint64(unix(observed))
	}

	for i, station := range view.Route {
		if i < len(view.Statuses) && view.Statuses[i] == models.StationPassed {
			continue
		}
		delay := int32(station.ArrivalDelayMinutes * 60)
		stu := &gtfs.TripUpdate_StopTimeUpdate{
			StopSequence: proto.Uint32(uint32(i + 1)),
			Arrival:      &gtfs.TripUpdate_StopTimeEvent{Delay: proto.Int32(delay)},
			Departure:    &gtfs.TripUpdate_StopTimeEvent{Delay: proto.Int32(delay)},
		}
		if station.Code != "" {
			stu.StopId = proto.String(station.Code)
		}
		tu.StopTimeUpdate = append(tu.StopTimeUpdate, stu)
	}

	return tu
}

// serviceDate converts a YYYY-MM-DD start date into GTFS YYYYMMDD form
func serviceDate(value string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return t.Format("20060102")
}

func unix(t time.Time) uint64 {
	if t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}
