// Package realtime feeds events from the upstream channel into the local
// alert store and device service.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/infrastructure/channel"
	"github.com/go-patient-monitor/internal/protocol"
)

const handleTimeout = 10 * time.Second

type alertInserter interface {
	Insert(ctx context.Context, a domain.Alert) (*domain.Alert, error)
}

type statusUpdater interface {
	UpdateStatus(ctx context.Context, upd domain.DeviceStatusUpdate) (*domain.Device, error)
}

type listenerRegistry interface {
	AddListener(event protocol.EventName, cb channel.Callback) *channel.Subscription
	RemoveListener(event protocol.EventName, sub *channel.Subscription) bool
}

type Bridge struct {
	alerts  alertInserter
	devices statusUpdater
	logger  *slog.Logger

	mu     sync.RWMutex
	latest *domain.AlertStats
}

func NewBridge(alerts alertInserter, devices statusUpdater, logger *slog.Logger) *Bridge {
	return &Bridge{alerts: alerts, devices: devices, logger: logger}
}

// Attach registers the bridge on ch. The returned func removes exactly the
// listeners added here.
func (b *Bridge) Attach(ch listenerRegistry) (detach func()) {
	subs := []*channel.Subscription{
		ch.AddListener(protocol.EventNewAlert, b.onNewAlert),
		ch.AddListener(protocol.EventDeviceUpdate, b.onDeviceUpdate),
		ch.AddListener(protocol.EventStatsUpdate, b.onStatsUpdate),
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, sub := range subs {
				ch.RemoveListener(sub.Event(), sub)
			}
		})
	}
}

// LatestStats returns the most recent upstream statistics, if any arrived.
func (b *Bridge) LatestStats() (domain.AlertStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return domain.AlertStats{}, false
	}
	return *b.latest, true
}

func (b *Bridge) onNewAlert(env protocol.Envelope) error {
	var a domain.Alert
	if err := json.Unmarshal(env.Data, &a); err != nil {
		return fmt.Errorf("decode newAlert: %w", err)
	}
	if a.ID == "" {
		a.ID = env.ID
	}
	a.Provenance = domain.ProvenanceSensor

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	_, err := b.alerts.Insert(ctx, a)
	if errors.Is(err, domain.ErrConflict) {
		b.logger.Debug("duplicate alert dropped", "alert_id", a.ID)
		return nil
	}
	return err
}

func (b *Bridge) onDeviceUpdate(env protocol.Envelope) error {
	var upd domain.DeviceStatusUpdate
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		return fmt.Errorf("decode deviceUpdate: %w", err)
	}
	if upd.Timestamp.IsZero() {
		upd.Timestamp = env.Timestamp
	}
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	_, err := b.devices.UpdateStatus(ctx, upd)
	return err
}

func (b *Bridge) onStatsUpdate(env protocol.Envelope) error {
	var stats domain.AlertStats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		return fmt.Errorf("decode statsUpdate: %w", err)
	}
	b.mu.Lock()
	b.latest = &stats
	b.mu.Unlock()
	return nil
}
