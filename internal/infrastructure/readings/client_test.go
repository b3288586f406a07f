package readings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentReadings_SortedWithBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices/readings/current", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{
			"RADAR-002":{"deviceId":"RADAR-002","activity":{"all":3,"breath":1}},
			"RADAR-001":{"deviceId":"RADAR-001","activity":{"all":7,"breath":2}}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", func() string { return "tok" })
	got, err := c.CurrentReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "RADAR-001", got[0].DeviceID)
	assert.Equal(t, 7, got[0].Activity.All)
}

func TestHistory_ValidationIsSynchronous(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.History(context.Background(), domain.HistoryQuery{Start: "2024-05-01", End: "2024-05-02"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Zero(t, calls)
}

func TestHistory_QueryAndEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history/RADAR-001", r.URL.Path)
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("start"))
		assert.Equal(t, "1h", r.URL.Query().Get("window"))
		_, _ = w.Write([]byte(`{"success":true,"data":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.History(context.Background(), domain.HistoryQuery{
		DeviceID: "RADAR-001", Start: "2024-05-01", End: "2024-05-02", Window: "1h",
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHistory_UnsuccessfulEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.History(context.Background(), domain.HistoryQuery{DeviceID: "x", Start: "a", End: "b"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestGet_Non2xxIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Scenario(context.Background(), "RADAR-001")
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadGateway, reqErr.Status)
	assert.Equal(t, "sensor backend down", reqErr.Reason)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestGet_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.CurrentReadings(context.Background())
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.Status)
}

func TestDailyStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RADAR-001", r.URL.Query().Get("deviceId"))
		if r.URL.Query().Get("date") == "2024-05-01" {
			_, _ = w.Write([]byte(`{"stats":{"date":"2024-05-01","deviceId":"RADAR-001","readingsCount":12}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	stats, err := c.DailyStats(context.Background(), "RADAR-001", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.ReadingsCount)

	_, err = c.DailyStats(context.Background(), "RADAR-001", "2024-05-02")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.DailyStats(context.Background(), "", "2024-05-02")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestScenario_None(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices/RADAR-001/scenario", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, nil).Scenario(context.Background(), "RADAR-001")
	require.NoError(t, err)
	assert.Nil(t, got)
}
