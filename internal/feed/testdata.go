package feed

import (
	"encoding/json"
	"fmt"
)

// SamplePayload returns a live-status document for testing.
// Uses a real Rajdhani route with stations listed the way the upstream sends them:
// the current station appears in both lists and upcoming stations are unordered.
func SamplePayload(trainNumber string, distanceTraveled float64) []byte {
	return []byte(fmt.Sprintf(`{
  "success": true,
  "train_number": %q,
  "train_name": "Mumbai Rajdhani",
  "train_start_date": "2025-03-14",
  "source_stn_name": "New Delhi",
  "dest_stn_name": "Mumbai Central",
  "run_days": "Daily",
  "current_station_name": "~Kota Jn",
  "current_station_code": "KOTA",
  "status": "T",
  "delay": 14,
  "distance_from_source": %v,
  "total_distance": 1386,
  "eta": "23:45",
  "etd": "23:55",
  "update_time": "2025-03-14T21:40:00Z",
  "travelling_towards": "RTM",
  "ahead_distance_text": "12 km ahead of Kota Jn",
  "previous_stations": [
    {"si_no": 1, "station_code": "NDLS", "station_name": "New Delhi", "distance_from_source": 0, "sta": "Source", "std": "16:55", "eta": "Source", "etd": "16:55", "halt": 0, "arrival_delay": 0, "platform_number": 3},
    {"si_no": 2, "station_code": "KOTA", "station_name": "Kota Jn", "distance_from_source": 465, "sta": "22:10", "std": "22:20", "eta": "22:24", "etd": "22:34", "halt": 10, "arrival_delay": 14, "platform_number": 1}
  ],
  "upcoming_stations": [
    {"si_no": 4, "station_code": "BRC", "station_name": "Vadodara Jn", "distance_from_source": 993, "sta": "03:29", "std": "03:37", "eta": "03:43", "etd": "03:51", "halt": 8, "arrival_delay": 14, "platform_number": 0, "distance_from_current_station_txt": "528 km to go"},
    {"si_no": 2, "station_code": "KOTA", "station_name": "Kota Jn", "distance_from_source": 465, "sta": "22:10", "std": "22:20", "eta": "22:24", "etd": "22:34", "halt": 10, "arrival_delay": 14, "platform_number": 1},
    {"si_no": 3, "station_code": "RTM", "station_name": "Ratlam Jn", "distance_from_source": 731, "sta": "00:40", "std": "00:43", "eta": "00:54", "etd": "00:57", "halt": 3, "arrival_delay": 14, "platform_number": "4", "distance_from_current_station_txt": "266 km to go"},
    {"si_no": 5, "station_code": "MMCT", "station_name": "Mumbai Central", "distance_from_source": 1386, "sta": "08:35", "std": "Destination", "eta": "08:49", "etd": "Destination", "halt": 0, "arrival_delay": 14, "platform_number": null}
  ],
  "next_stoppage_info": {
    "next_stoppage": "Ratlam Jn",
    "next_stoppage_time_diff": "2h 30m"
  }
}`, trainNumber, distanceTraveled))
}

// SampleEnvelope wraps a payload the way the proxy does
func SampleEnvelope(payload []byte) []byte {
	env := map[string]interface{}{
		"contents": string(payload),
		"status": map[string]interface{}{
			"url":       "https://rappid.in/apis/train.php",
			"http_code": 200,
		},
	}
	data, _ := json.Marshal(env)
	return data
}
