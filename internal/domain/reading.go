package domain

import "time"

type DeviceActivity struct {
	All    int `json:"all"`
	Breath int `json:"breath"`
}

type DeviceReading struct {
	DeviceID  string         `json:"deviceId"`
	Activity  DeviceActivity `json:"activity"`
	Timestamp time.Time      `json:"timestamp"`
}

type ActiveScenario struct {
	Type      string `json:"type"`
	StartTime string `json:"startTime"`
	Duration  int    `json:"duration"`
	Room      string `json:"room"`
}

type HistoricalReading struct {
	Time            string `json:"time"`
	DeviceID        string `json:"deviceId"`
	ActivitySeconds int    `json:"activitySeconds"`
	BreathSeconds   int    `json:"breathSeconds"`
}

type DailyStats struct {
	Date                   string  `json:"date"`
	DeviceID               string  `json:"deviceId"`
	TotalActivitySeconds   int     `json:"totalActivitySeconds"`
	TotalBreathSeconds     int     `json:"totalBreathSeconds"`
	ReadingsCount          int     `json:"readingsCount"`
	AverageActivitySeconds float64 `json:"averageActivitySeconds"`
	AverageBreathSeconds   float64 `json:"averageBreathSeconds"`
}

// HistoryQuery bounds a historical readings request.
type HistoryQuery struct {
	DeviceID string `validate:"required"`
	Start    string `validate:"required"`
	End      string `validate:"required"`
	Window   string
}
