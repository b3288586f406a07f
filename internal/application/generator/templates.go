package generator

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-patient-monitor/internal/domain"
)

// Template describes one kind of synthetic alert. Values are drawn from the
// closed interval [Min, Max]; integer templates use whole steps, others are
// rounded to Decimals places.
type Template struct {
	Title    string
	Message  string // "{value}" is replaced with the drawn value
	Type     domain.AlertType
	Severity domain.Severity
	DeviceID string
	Min      float64
	Max      float64
	Decimals int
}

// Templates is the fixed catalogue GenerateOne picks from.
var Templates = []Template{
	{
		Title:    "Rapid breathing",
		Message:  "Respiratory rate rose to {value} breaths/min over the last 5 minutes.",
		Type:     domain.AlertMotionDetected,
		Severity: domain.SeverityMedium,
		DeviceID: "RADAR-001",
		Min:      20,
		Max:      24,
	},
	{
		Title:    "Night activity",
		Message:  "Detected {value} movement episodes in the last 2 hours.",
		Type:     domain.AlertMotionDetected,
		Severity: domain.SeverityLow,
		DeviceID: "RADAR-001",
		Min:      3,
		Max:      7,
	},
	{
		Title:    "Time in bathroom",
		Message:  "Bathroom visit of {value} minutes. Longer than average.",
		Type:     domain.AlertCustom,
		Severity: domain.SeverityMedium,
		DeviceID: "RADAR-002",
		Min:      12,
		Max:      21,
	},
	{
		Title:    "Device battery",
		Message:  "Battery of device RADAR-001 is at {value}%.",
		Type:     domain.AlertLowBattery,
		Severity: domain.SeverityMedium,
		DeviceID: "RADAR-001",
		Min:      5,
		Max:      14,
	},
	{
		Title:    "Unstable connection",
		Message:  "Lost {value} data packets in the last 10 minutes.",
		Type:     domain.AlertOffline,
		Severity: domain.SeverityLow,
		DeviceID: "RADAR-001",
		Min:      20,
		Max:      69,
	},
	{
		Title:    "Room temperature",
		Message:  "Temperature in the main room is {value}°C.",
		Type:     domain.AlertCustom,
		Severity: domain.SeverityLow,
		DeviceID: "RADAR-001",
		Min:      16,
		Max:      28,
		Decimals: 1,
	},
}

// Value draws a value in [Min, Max].
func (t Template) Value(r Rand) float64 {
	if t.Decimals == 0 {
		return t.Min + float64(r.IntN(int(t.Max-t.Min)+1))
	}
	scale := math.Pow(10, float64(t.Decimals))
	v := math.Round((t.Min+r.Float64()*(t.Max-t.Min))*scale) / scale
	return math.Min(math.Max(v, t.Min), t.Max)
}

// Render substitutes v into the message.
func (t Template) Render(v float64) string {
	return strings.Replace(t.Message, "{value}", strconv.FormatFloat(v, 'f', t.Decimals, 64), 1)
}
