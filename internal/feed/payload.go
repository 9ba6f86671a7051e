package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// payload is the upstream live-status document
type payload struct {
	Success            bool             `json:"success"`
	TrainNumber        text             `json:"train_number"`
	TrainName          string           `json:"train_name"`
	TrainStartDate     string           `json:"train_start_date"`
	SourceName         string           `json:"source_stn_name"`
	DestinationName    string           `json:"dest_stn_name"`
	RunDays            string           `json:"run_days"`
	CurrentStationName string           `json:"current_station_name"`
	CurrentStationCode string           `json:"current_station_code"`
	Delay              number           `json:"delay"`
	DistanceFromSource number           `json:"distance_from_source"`
	TotalDistance      number           `json:"total_distance"`
	UpdateTime         string           `json:"update_time"`
	AheadDistanceText  string           `json:"ahead_distance_text"`
	PreviousStations   []stationPayload `json:"previous_stations"`
	UpcomingStations   []stationPayload `json:"upcoming_stations"`
	NextStoppageInfo   *struct {
		NextStoppage         string `json:"next_stoppage"`
		NextStoppageTimeDiff string `json:"next_stoppage_time_diff"`
	} `json:"next_stoppage_info"`
}

type stationPayload struct {
	StationCode             string `json:"station_code"`
	StationName             string `json:"station_name"`
	DistanceFromSource      number `json:"distance_from_source"`
	STA                     string `json:"sta"`
	STD                     string `json:"std"`
	ETA                     string `json:"eta"`
	ETD                     string `json:"etd"`
	Halt                    number `json:"halt"`
	ArrivalDelay            number `json:"arrival_delay"`
	PlatformNumber          number `json:"platform_number"`
	DistanceFromCurrentText string `json:"distance_from_current_station_txt"`
}

// updateTimeLayouts are the timestamp formats seen from the upstream
var updateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z",
	"02-Jan-2006 15:04",
}

func (p *payload) toSnapshot() *models.Snapshot {
	snap := &models.Snapshot{
		EntityID:            strings.TrimSpace(string(p.TrainNumber)),
		DisplayName:         strings.TrimSpace(p.TrainName),
		OriginName:          p.SourceName,
		DestinationName:     p.DestinationName,
		CurrentLocationName: p.CurrentStationName,
		CurrentLocationCode: p.CurrentStationCode,
		DelayMinutes:        p.Delay.int(),
		DistanceTraveled:    nonNegative(float64(p.DistanceFromSource)),
		TotalDistance:       nonNegative(float64(p.TotalDistance)),
		ObservedAt:          parseUpdateTime(p.UpdateTime),
		VisitedStations:     convertStations(p.PreviousStations),
		UpcomingStations:    convertStations(p.UpcomingStations),
		AheadDistanceText:   p.AheadDistanceText,
		StartDate:           p.TrainStartDate,
		RunDays:             p.RunDays,
	}

	if info := p.NextStoppageInfo; info != nil && info.NextStoppage != "" {
		snap.NextStop = &models.NextStop{
			Name:    info.NextStoppage,
			ETAText: info.NextStoppageTimeDiff,
		}
	}

	return snap
}

func convertStations(in []stationPayload) []models.Station {
	out := make([]models.Station, 0, len(in))
	for _, s := range in {
		station := models.Station{
			Code:                    strings.TrimSpace(s.StationCode),
			Name:                    s.StationName,
			DistanceFromSource:      nonNegative(float64(s.DistanceFromSource)),
			ScheduledArrival:        s.STA,
			ScheduledDeparture:      s.STD,
			EstimatedArrival:        s.ETA,
			EstimatedDeparture:      s.ETD,
			HaltMinutes:             max(s.Halt.int(), 0),
			ArrivalDelayMinutes:     s.ArrivalDelay.int(),
			DistanceFromCurrentText: s.DistanceFromCurrentText,
		}
		// 0 means the platform has not been announced yet
		if platform := s.PlatformNumber.int(); platform > 0 {
			station.Platform = &platform
		}
		out = append(out, station)
	}
	return out
}

func parseUpdateTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range updateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// number accepts JSON numbers, numeric strings, and empty or null values
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	if s == "" || s == "null" || s == "-" || s == "--" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(v)
	return nil
}

func (n number) int() int {
	return int(n)
}

// text accepts JSON strings and numbers
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("invalid text %s", b)
	}
	*t = text(num.String())
	return nil
}
