package models

import (
	"math"
	"strings"
	"time"
)

// DelayedThresholdMinutes is the delay above which a train is reported as delayed
const DelayedThresholdMinutes = 10

// Station represents one stop on a train's route
type Station struct {
	Code                    string  `json:"code"`
	Name                    string  `json:"name"`
	DistanceFromSource      float64 `json:"distance_from_source"`
	ScheduledArrival        string  `json:"scheduled_arrival"`
	ScheduledDeparture      string  `json:"scheduled_departure"`
	EstimatedArrival        string  `json:"estimated_arrival"`
	EstimatedDeparture      string  `json:"estimated_departure"`
	HaltMinutes             int     `json:"halt_minutes"`
	ArrivalDelayMinutes     int     `json:"arrival_delay_minutes"`
	Platform                *int    `json:"platform,omitempty"`
	DistanceFromCurrentText string  `json:"distance_from_current,omitempty"`
}

// NextStop is the upstream's summary of the next scheduled halt
type NextStop struct {
	Name    string `json:"name"`
	ETAText string `json:"eta_text"`
}

// Snapshot is one observation of a train's live status.
// A Snapshot is never mutated after construction; a newer one replaces it.
type Snapshot struct {
	EntityID            string    `json:"entity_id"`
	DisplayName         string    `json:"display_name"`
	OriginName          string    `json:"origin_name"`
	DestinationName     string    `json:"destination_name"`
	CurrentLocationName string    `json:"current_location_name"`
	CurrentLocationCode string    `json:"current_location_code"`
	DelayMinutes        int       `json:"delay_minutes"`
	DistanceTraveled    float64   `json:"distance_traveled"`
	TotalDistance       float64   `json:"total_distance"`
	ObservedAt          time.Time `json:"observed_at"`
	VisitedStations     []Station `json:"visited_stations"`
	UpcomingStations    []Station `json:"upcoming_stations"`
	NextStop            *NextStop `json:"next_stop,omitempty"`
	AheadDistanceText   string    `json:"ahead_distance_text,omitempty"`
	StartDate           string    `json:"start_date,omitempty"`
	RunDays             string    `json:"run_days,omitempty"`
}

// ProgressPercent returns the share of the journey completed, clamped to [0, 100]
func (s *Snapshot) ProgressPercent() float64 {
	if s.TotalDistance <= 0 {
		return 0
	}
	pct := s.DistanceTraveled / s.TotalDistance * 100
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// IsDelayed reports whether the train is running late enough to flag
func (s *Snapshot) IsDelayed() bool {
	return s.DelayMinutes > DelayedThresholdMinutes
}

// CurrentLocationLabel returns the current location name without upstream '~' markers
func (s *Snapshot) CurrentLocationLabel() string {
	return strings.TrimSpace(strings.ReplaceAll(s.CurrentLocationName, "~", ""))
}

// Position locates the train between two consecutive route stations
type Position struct {
	SegmentIndex       int     `json:"segment_index"`
	Fraction           float64 `json:"fraction"`
	NormalizedProgress float64 `json:"normalized_progress"`
}

// StationStatus marks a route station relative to the train
type StationStatus string

const (
	StationPassed   StationStatus = "passed"
	StationNext     StationStatus = "next"
	StationUpcoming StationStatus = "upcoming"
)

// RouteStop is one station of the consolidated route with its status
type RouteStop struct {
	Station
	Status StationStatus `json:"status"`
}

// Phase is the refresh controller's lifecycle state
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseFetchingForeground Phase = "fetching_foreground"
	PhaseReady              Phase = "ready"
	PhaseFetchingBackground Phase = "fetching_background"
	PhaseErrorShown         Phase = "error_shown"
)

// Blocking reports whether the phase should show the full-screen loading view
func (p Phase) Blocking() bool {
	return p == PhaseFetchingForeground
}

// Updating reports whether a non-blocking refresh is in flight
func (p Phase) Updating() bool {
	return p == PhaseFetchingBackground
}

// FetchFailure is the presentation-facing form of a failed foreground fetch
type FetchFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RefreshState is the controller's state for one search session
type RefreshState struct {
	Phase         Phase         `json:"phase"`
	EntityID      string        `json:"entity_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	Snapshot      *Snapshot     `json:"snapshot"`
	Err           *FetchFailure `json:"error"`
	LastUpdatedAt time.Time     `json:"last_updated_at"`
	Manual        bool          `json:"manual_refresh"`
	Generation    uint64        `json:"-"`
}

// View is everything the presentation layer needs to render one session
type View struct {
	State           RefreshState    `json:"state"`
	Route           []Station       `json:"route"`
	Statuses        []StationStatus `json:"statuses"`
	Position        Position        `json:"position"`
	ProgressPercent float64         `json:"progress_percent"`
	Delayed         bool            `json:"delayed"`
	CurrentLocation string          `json:"current_location,omitempty"`
	// RecenterSeq increases once each time a train's first snapshot arrives.
	// Readers recenter the route when it differs from the value they last saw.
	RecenterSeq     uint64          `json:"recenter_seq"`
}

// StatusResponse is the API response format for a session view
type StatusResponse struct {
	Phase           Phase         `json:"phase"`
	Blocking        bool          `json:"blocking"`
	Updating        bool          `json:"updating"`
	ManualRefresh   bool          `json:"manual_refresh"`
	TrainNumber     string        `json:"train_number,omitempty"`
	TrainName       string        `json:"train_name,omitempty"`
	Origin          string        `json:"origin,omitempty"`
	Destination     string        `json:"destination,omitempty"`
	CurrentLocation string        `json:"current_location,omitempty"`
	DelayMinutes    int           `json:"delay_minutes"`
	Delayed         bool          `json:"delayed"`
	ProgressPercent float64       `json:"progress_percent"`
	NextStop        *NextStop     `json:"next_stop,omitempty"`
	StationCount    int           `json:"station_count"`
	Position        Position      `json:"position"`
	RecenterSeq     uint64        `json:"recenter_seq"`
	Error           *FetchFailure `json:"error,omitempty"`
	ObservedAt      *time.Time    `json:"observed_at,omitempty"`
	LastUpdate      *time.Time    `json:"last_update,omitempty"`
}

// ConvertToResponse converts a View to StatusResponse format
func (v *View) ConvertToResponse() StatusResponse {
	resp := StatusResponse{
		Phase:           v.State.Phase,
		Blocking:        v.State.Phase.Blocking(),
		Updating:        v.State.Phase.Updating(),
		ManualRefresh:   v.State.Manual,
		TrainNumber:     v.State.EntityID,
		CurrentLocation: v.CurrentLocation,
		Delayed:         v.Delayed,
		ProgressPercent: v.ProgressPercent,
		StationCount:    len(v.Route),
		Position:        v.Position,
		RecenterSeq:     v.RecenterSeq,
		Error:           v.State.Err,
	}

	if snap := v.State.Snapshot; snap != nil {
		resp.TrainName = snap.DisplayName
		resp.Origin = snap.OriginName
		resp.Destination = snap.DestinationName
		resp.DelayMinutes = snap.DelayMinutes
		resp.NextStop = snap.NextStop
		if !snap.ObservedAt.IsZero() {
			observed := snap.ObservedAt
			resp.ObservedAt = &observed
		}
	}
	if !v.State.LastUpdatedAt.IsZero() {
		updated := v.State.LastUpdatedAt
		resp.LastUpdate = &updated
	}

	return resp
}
