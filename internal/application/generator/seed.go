package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/pkg/id"
)

// Seeder is the part of the alert store SeedDemo writes through.
type Seeder interface {
	DeleteAll(ctx context.Context) error
	Insert(ctx context.Context, a domain.Alert) (*domain.Alert, error)
}

type demoAlert struct {
	title    string
	message  string
	typ      domain.AlertType
	severity domain.Severity
	deviceID string
	read     bool
}

var demoAlerts = []demoAlert{
	{"Abnormal breathing", "High respiratory rate (22 breaths/min) detected over the last 15 minutes.", domain.AlertMotionDetected, domain.SeverityMedium, "RADAR-001", false},
	{"Long bathroom visit", "The patient has been in the bathroom for more than 15 minutes. Please check.", domain.AlertCustom, domain.SeverityMedium, "RADAR-002", false},
	{"Device offline", "The bathroom radar (RADAR-002) is not responding. Check the connection.", domain.AlertOffline, domain.SeverityHigh, "RADAR-002", false},
	{"Night activity", "Frequent movement detected during the night (3:00 - 4:00).", domain.AlertMotionDetected, domain.SeverityLow, "RADAR-001", true},
	{"Low battery", "Battery of device RADAR-001 is at 15%. Connect it to power.", domain.AlertLowBattery, domain.SeverityMedium, "RADAR-001", false},
	{"Update available", "A new firmware update is available for the radar devices.", domain.AlertCustom, domain.SeverityLow, "", true},
	{"Unusual pattern", "Unusual movement pattern detected in the main room.", domain.AlertMotionDetected, domain.SeverityMedium, "RADAR-001", false},
}

// SeedDemo replaces the store contents with a fixed set of demo alerts, two of
// them already read. Later entries are newer.
func (g *Generator) SeedDemo(ctx context.Context, store Seeder) ([]domain.Alert, error) {
	if err := store.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear alerts: %w", err)
	}
	now := g.now().UTC()
	out := make([]domain.Alert, 0, len(demoAlerts))
	for i, d := range demoAlerts {
		a := domain.Alert{
			ID:         id.New(),
			DeviceID:   d.deviceID,
			Title:      d.title,
			Type:       d.typ,
			Severity:   d.severity,
			Message:    d.message,
			Timestamp:  now.Add(-time.Duration(len(demoAlerts)-1-i) * 100 * time.Millisecond),
			Read:       d.read,
			Provenance: domain.ProvenanceDemo,
		}
		stored, err := store.Insert(ctx, a)
		if err != nil {
			return out, fmt.Errorf("seed alert %q: %w", d.title, err)
		}
		out = append(out, *stored)
	}
	g.logger.Info("demo alerts seeded", "count", len(out))
	return out, nil
}
