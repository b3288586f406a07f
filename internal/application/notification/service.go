// Package notification pushes important sensor alerts to caregivers outside
// the app.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/application/alert"
	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/metrics"
)

const publishTimeout = 10 * time.Second

type Publisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) error
}

type Service interface {
	// Notify publishes a if it qualifies and reports whether it was sent.
	Notify(ctx context.Context, a domain.Alert) (bool, error)
	// Observe is an alert store observer; qualifying additions are published
	// in the background.
	Observe(c alert.Change)
	// Wait blocks until background publishes finish.
	Wait()
}

type service struct {
	publisher   Publisher
	minSeverity domain.Severity
	logger      *slog.Logger
	wg          sync.WaitGroup
}

func NewService(publisher Publisher, minSeverity domain.Severity, logger *slog.Logger) Service {
	if !minSeverity.Valid() {
		minSeverity = domain.SeverityHigh
	}
	return &service{publisher: publisher, minSeverity: minSeverity, logger: logger}
}

// qualifies keeps demo data away from real caregivers.
func (s *service) qualifies(a domain.Alert) bool {
	return a.Provenance == domain.ProvenanceSensor && a.Severity.Rank() >= s.minSeverity.Rank()
}

func (s *service) Notify(ctx context.Context, a domain.Alert) (bool, error) {
	if !s.qualifies(a) {
		return false, nil
	}
	subject := a.Title
	if subject == "" {
		subject = fmt.Sprintf("%s alert", a.Type)
	}
	err := s.publisher.Publish(ctx, subject, a.Message, map[string]string{
		"alert_id":  a.ID,
		"device_id": a.DeviceID,
		"severity":  string(a.Severity),
		"type":      string(a.Type),
	})
	if err != nil {
		metrics.NotificationsPublishedTotal.WithLabelValues("failure").Inc()
		return false, err
	}
	metrics.NotificationsPublishedTotal.WithLabelValues("success").Inc()
	return true, nil
}

func (s *service) Observe(c alert.Change) {
	if c.Kind != alert.ChangeAdded || c.Alert == nil || !s.qualifies(*c.Alert) {
		return
	}
	a := *c.Alert
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := s.Notify(ctx, a); err != nil {
			s.logger.Error("alert notification failed", "alert_id", a.ID, "err", err)
		}
	}()
}

func (s *service) Wait() {
	s.wg.Wait()
}
