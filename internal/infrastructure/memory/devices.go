package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
)

// DeviceRepo is an in-memory devices table accepting the same update keys as
// the DynamoDB repo.
type DeviceRepo struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

func NewDeviceRepo(seed ...domain.Device) *DeviceRepo {
	r := &DeviceRepo{devices: make(map[string]domain.Device, len(seed))}
	for _, d := range seed {
		r.devices[d.DeviceID] = d
	}
	return r
}

// MockDevices is the household fleet used when no device table is configured.
func MockDevices(now time.Time) []domain.Device {
	battery := func(n int) *int { return &n }
	return []domain.Device{
		{DeviceID: "1", Name: "Kitchen sensor", Type: domain.DeviceMotionSensor, Location: "Kitchen", Status: domain.DeviceOnline, Battery: battery(85), LastUpdate: now},
		{DeviceID: "2", Name: "Living room sensor", Type: domain.DeviceMotionSensor, Location: "Living room", Status: domain.DeviceOnline, Battery: battery(15), LastUpdate: now},
		{DeviceID: "3", Name: "Door sensor", Type: domain.DeviceDoorSensor, Location: "Entrance", Status: domain.DeviceOffline, Battery: battery(50), LastUpdate: now},
	}
}

func (r *DeviceRepo) Put(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	r.devices[d.DeviceID] = *d
	r.mu.Unlock()
	return nil
}

func (r *DeviceRepo) Get(_ context.Context, deviceID string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	return &d, nil
}

func (r *DeviceRepo) List(_ context.Context) ([]domain.Device, error) {
	r.mu.RLock()
	out := make([]domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (r *DeviceRepo) Update(_ context.Context, deviceID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	for k, v := range updates {
		if err := applyField(&d, k, v); err != nil {
			return err
		}
	}
	r.devices[deviceID] = d
	return nil
}

func applyField(d *domain.Device, field string, v interface{}) error {
	var ok bool
	switch field {
	case "name":
		d.Name, ok = v.(string)
	case "location":
		d.Location, ok = v.(string)
	case "type":
		var t domain.DeviceType
		t, ok = v.(domain.DeviceType)
		d.Type = t
	case "status":
		var s domain.DeviceStatus
		s, ok = v.(domain.DeviceStatus)
		d.Status = s
	case "battery":
		var n int
		n, ok = v.(int)
		d.Battery = &n
	case "last_update":
		d.LastUpdate, ok = v.(time.Time)
	default:
		return fmt.Errorf("unknown device field %q", field)
	}
	if !ok {
		return fmt.Errorf("field %q: unexpected value type %T", field, v)
	}
	return nil
}

func (r *DeviceRepo) Delete(_ context.Context, deviceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[deviceID]; !ok {
		return false, nil
	}
	delete(r.devices, deviceID)
	return true, nil
}
