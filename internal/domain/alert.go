package domain

import "time"

type AlertType string

const (
	AlertMotionDetected AlertType = "motion_detected"
	AlertDoorOpened     AlertType = "door_opened"
	AlertWindowOpened   AlertType = "window_opened"
	AlertLowBattery     AlertType = "low_battery"
	AlertOffline        AlertType = "offline"
	AlertCustom         AlertType = "custom"

	// General notices raised by callers rather than by a sensor.
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
)

// AlertTypes lists the closed set of alert classifications.
var AlertTypes = []AlertType{
	AlertMotionDetected,
	AlertDoorOpened,
	AlertWindowOpened,
	AlertLowBattery,
	AlertOffline,
	AlertCustom,
	AlertInfo,
	AlertWarning,
	AlertError,
}

func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Rank orders severities so thresholds can be compared; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// Provenance tells sensor-sourced alerts apart from synthetic demo data.
type Provenance string

const (
	ProvenanceSensor Provenance = "sensor"
	ProvenanceDemo   Provenance = "demo"
)

type Alert struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"deviceId"`
	Title      string     `json:"title,omitempty"`
	Type       AlertType  `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
	Read       bool       `json:"read"`
	Resolved   bool       `json:"resolved"`
	Provenance Provenance `json:"provenance"`
}

// NewAlert is the caller-supplied part of an alert; identity, timestamp and
// flags are assigned by the store.
type NewAlert struct {
	DeviceID   string     `json:"deviceId"`
	Title      string     `json:"title"`
	Type       AlertType  `json:"type" validate:"omitempty,oneof=motion_detected door_opened window_opened low_battery offline custom info warning error"`
	Severity   Severity   `json:"severity" validate:"omitempty,oneof=low medium high"`
	Message    string     `json:"message" validate:"required"`
	Provenance Provenance `json:"provenance" validate:"omitempty,oneof=sensor demo"`
}

// AlertFilter predicates are conjunctive; zero values mean "any".
type AlertFilter struct {
	DeviceID string
	Read     *bool
	Resolved *bool
	Severity Severity
	Days     int
}

type AlertStats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	ByDevice   map[string]int   `json:"byDevice"`
	BySeverity map[Severity]int `json:"bySeverity"`
}
