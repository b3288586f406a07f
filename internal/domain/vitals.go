package domain

import "time"

type Vitals struct {
	HeartRate  int       `json:"heartRate"`
	Steps      int       `json:"steps"`
	Location   string    `json:"location"`
	LastUpdate time.Time `json:"lastUpdate"`
}
