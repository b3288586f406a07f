package device

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/pkg/id"
	"github.com/go-patient-monitor/internal/pkg/observer"
	"github.com/go-patient-monitor/internal/pkg/validate"
)

type Service interface {
	List(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	Add(ctx context.Context, req domain.CreateDeviceRequest) (*domain.Device, error)
	Update(ctx context.Context, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error)
	// Delete reports whether the device existed.
	Delete(ctx context.Context, deviceID string) (bool, error)
	Stats(ctx context.Context) (*domain.DeviceStats, error)
	// UpdateStatus applies a status report from the event channel.
	UpdateStatus(ctx context.Context, upd domain.DeviceStatusUpdate) (*domain.Device, error)
	// Subscribe registers fn for every device changed by UpdateStatus.
	Subscribe(fn func(domain.Device)) (cancel func())
}

type deviceStore interface {
	List(ctx context.Context) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	Put(ctx context.Context, d *domain.Device) error
	Update(ctx context.Context, deviceID string, updates map[string]interface{}) error
	Delete(ctx context.Context, deviceID string) (bool, error)
}

type service struct {
	repo      deviceStore
	logger    *slog.Logger
	now       func() time.Time
	observers *observer.Registry[domain.Device]
}

func NewService(repo deviceStore, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		logger:    logger,
		now:       time.Now,
		observers: observer.NewRegistry[domain.Device](),
	}
}

func (s *service) List(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Device, 0, len(all))
	for _, d := range all {
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.Location != "" && d.Location != filter.Location {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (s *service) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.repo.Get(ctx, deviceID)
}

func (s *service) Add(ctx context.Context, req domain.CreateDeviceRequest) (*domain.Device, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	d := &domain.Device{
		DeviceID:   id.New(),
		Name:       req.Name,
		Type:       req.Type,
		Location:   req.Location,
		Status:     domain.DeviceOffline,
		Battery:    req.Battery,
		LastUpdate: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return nil, fmt.Errorf("put device: %w", err)
	}
	return d, nil
}

func (s *service) Update(ctx context.Context, deviceID string, req domain.UpdateDeviceRequest) (*domain.Device, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Battery != nil {
		updates["battery"] = *req.Battery
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, deviceID)
	}
	updates["last_update"] = s.now().UTC()
	if err := s.repo.Update(ctx, deviceID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, deviceID)
}

func (s *service) Delete(ctx context.Context, deviceID string) (bool, error) {
	return s.repo.Delete(ctx, deviceID)
}

func (s *service) Stats(ctx context.Context) (*domain.DeviceStats, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.DeviceStats{
		Total:      len(all),
		ByType:     make(map[domain.DeviceType]int),
		ByLocation: make(map[string]int),
	}
	for _, d := range all {
		if d.Status == domain.DeviceOnline {
			stats.Online++
		}
		stats.ByType[d.Type]++
		stats.ByLocation[d.Location]++
		if d.Battery != nil && *d.Battery < domain.LowBatteryThreshold {
			stats.LowBattery++
		}
	}
	return stats, nil
}

func (s *service) UpdateStatus(ctx context.Context, upd domain.DeviceStatusUpdate) (*domain.Device, error) {
	if err := validate.Struct(upd); err != nil {
		return nil, err
	}
	ts := upd.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	updates := map[string]interface{}{
		"status":      upd.Status,
		"last_update": ts.UTC(),
	}
	if upd.Battery != nil {
		updates["battery"] = *upd.Battery
	}
	if err := s.repo.Update(ctx, upd.DeviceID, updates); err != nil {
		return nil, err
	}
	d, err := s.repo.Get(ctx, upd.DeviceID)
	if err != nil {
		return nil, err
	}
	for _, f := range s.observers.Notify(*d) {
		s.logger.Warn("device observer failed", "device_id", d.DeviceID, "err", f.Err)
	}
	return d, nil
}

func (s *service) Subscribe(fn func(domain.Device)) func() {
	h := s.observers.Add(func(d domain.Device) error {
		fn(d)
		return nil
	})
	return func() { s.observers.Remove(h) }
}
