package device

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) List(ctx context.Context) ([]domain.Device, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]domain.Device)
	return devices, args.Error(1)
}
func (m *mockDeviceStore) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	args := m.Called(ctx, deviceID)
	if d, _ := args.Get(0).(*domain.Device); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) Put(ctx context.Context, d *domain.Device) error {
	return m.Called(ctx, d).Error(0)
}
func (m *mockDeviceStore) Update(ctx context.Context, deviceID string, updates map[string]interface{}) error {
	return m.Called(ctx, deviceID, updates).Error(0)
}
func (m *mockDeviceStore) Delete(ctx context.Context, deviceID string) (bool, error) {
	args := m.Called(ctx, deviceID)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo deviceStore) *service {
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func intPtr(n int) *int { return &n }

func fleet() []domain.Device {
	return []domain.Device{
		{DeviceID: "2", Type: domain.DeviceMotionSensor, Location: "Living room", Status: domain.DeviceOnline, Battery: intPtr(15)},
		{DeviceID: "1", Type: domain.DeviceMotionSensor, Location: "Kitchen", Status: domain.DeviceOnline, Battery: intPtr(85)},
		{DeviceID: "3", Type: domain.DeviceDoorSensor, Location: "Entrance", Status: domain.DeviceOffline, Battery: intPtr(50)},
	}
}

// --- tests ---

func TestList_FiltersAndSorts(t *testing.T) {
	repo := new(mockDeviceStore)
	repo.On("List", mock.Anything).Return(fleet(), nil)
	svc := newTestService(repo)

	all, err := svc.List(context.Background(), domain.DeviceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].DeviceID)

	motion, err := svc.List(context.Background(), domain.DeviceFilter{Type: domain.DeviceMotionSensor, Status: domain.DeviceOnline})
	require.NoError(t, err)
	assert.Len(t, motion, 2)

	kitchen, err := svc.List(context.Background(), domain.DeviceFilter{Location: "Kitchen"})
	require.NoError(t, err)
	require.Len(t, kitchen, 1)
	assert.Equal(t, "1", kitchen[0].DeviceID)
}

func TestAdd_DefaultsOffline(t *testing.T) {
	repo := new(mockDeviceStore)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Device")).Return(nil)
	svc := newTestService(repo)

	d, err := svc.Add(context.Background(), domain.CreateDeviceRequest{
		Name: "Bathroom radar", Type: domain.DeviceRadar, Location: "Bathroom",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.DeviceID)
	assert.Equal(t, domain.DeviceOffline, d.Status)
	assert.Equal(t, svc.now(), d.LastUpdate)
	repo.AssertExpectations(t)
}

func TestAdd_Invalid(t *testing.T) {
	svc := newTestService(new(mockDeviceStore))
	_, err := svc.Add(context.Background(), domain.CreateDeviceRequest{Name: "x", Type: "toaster", Location: "Kitchen"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestUpdate_NoFieldsReturnsCurrent(t *testing.T) {
	repo := new(mockDeviceStore)
	current := &domain.Device{DeviceID: "1", Name: "Kitchen sensor"}
	repo.On("Get", mock.Anything, "1").Return(current, nil)
	svc := newTestService(repo)

	d, err := svc.Update(context.Background(), "1", domain.UpdateDeviceRequest{})
	require.NoError(t, err)
	assert.Equal(t, current, d)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_AppliesFields(t *testing.T) {
	repo := new(mockDeviceStore)
	name := "Hall sensor"
	repo.On("Update", mock.Anything, "1", map[string]interface{}{
		"name":        name,
		"last_update": time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}).Return(nil)
	repo.On("Get", mock.Anything, "1").Return(&domain.Device{DeviceID: "1", Name: name}, nil)
	svc := newTestService(repo)

	d, err := svc.Update(context.Background(), "1", domain.UpdateDeviceRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, d.Name)
	repo.AssertExpectations(t)
}

func TestUpdate_NotFound(t *testing.T) {
	repo := new(mockDeviceStore)
	repo.On("Update", mock.Anything, "9", mock.Anything).Return(domain.ErrNotFound)
	svc := newTestService(repo)

	loc := "Attic"
	_, err := svc.Update(context.Background(), "9", domain.UpdateDeviceRequest{Location: &loc})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStats(t *testing.T) {
	repo := new(mockDeviceStore)
	repo.On("List", mock.Anything).Return(fleet(), nil)
	svc := newTestService(repo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Online)
	assert.Equal(t, 1, stats.LowBattery)
	assert.Equal(t, 2, stats.ByType[domain.DeviceMotionSensor])
	assert.Equal(t, 1, stats.ByLocation["Entrance"])
}

func TestUpdateStatus_NotifiesSubscribers(t *testing.T) {
	repo := new(mockDeviceStore)
	ts := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	repo.On("Update", mock.Anything, "3", map[string]interface{}{
		"status":      domain.DeviceOnline,
		"last_update": ts,
		"battery":     40,
	}).Return(nil)
	updated := &domain.Device{DeviceID: "3", Status: domain.DeviceOnline, Battery: intPtr(40), LastUpdate: ts}
	repo.On("Get", mock.Anything, "3").Return(updated, nil)
	svc := newTestService(repo)

	var seen []domain.Device
	cancel := svc.Subscribe(func(d domain.Device) { seen = append(seen, d) })

	d, err := svc.UpdateStatus(context.Background(), domain.DeviceStatusUpdate{
		DeviceID: "3", Status: domain.DeviceOnline, Battery: intPtr(40), Timestamp: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, updated, d)
	require.Len(t, seen, 1)
	assert.Equal(t, "3", seen[0].DeviceID)

	cancel()
	_, err = svc.UpdateStatus(context.Background(), domain.DeviceStatusUpdate{
		DeviceID: "3", Status: domain.DeviceOnline, Battery: intPtr(40), Timestamp: ts,
	})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc := newTestService(new(mockDeviceStore))
	_, err := svc.UpdateStatus(context.Background(), domain.DeviceStatusUpdate{DeviceID: "3", Status: "sleeping"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestDelete(t *testing.T) {
	repo := new(mockDeviceStore)
	repo.On("Delete", mock.Anything, "1").Return(true, nil)
	repo.On("Delete", mock.Anything, "9").Return(false, nil)
	svc := newTestService(repo)

	ok, err := svc.Delete(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Delete(context.Background(), "9")
	require.NoError(t, err)
	assert.False(t, ok)
}
