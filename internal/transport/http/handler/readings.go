package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-patient-monitor/internal/domain"
)

// ReadingsSource is the sensor readings API.
type ReadingsSource interface {
	CurrentReadings(ctx context.Context) ([]domain.DeviceReading, error)
	Scenario(ctx context.Context, deviceID string) (*domain.ActiveScenario, error)
	History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoricalReading, error)
	DailyStats(ctx context.Context, deviceID, date string) (*domain.DailyStats, error)
}

// ReadingsHandler proxies the sensor readings API.
type ReadingsHandler struct {
	src ReadingsSource
}

func NewReadingsHandler(src ReadingsSource) *ReadingsHandler { return &ReadingsHandler{src: src} }

func (h *ReadingsHandler) Current(w http.ResponseWriter, r *http.Request) {
	readings, err := h.src.CurrentReadings(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope[domain.DeviceReading]{Data: readings})
}

func (h *ReadingsHandler) Scenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.src.Scenario(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Scenario *domain.ActiveScenario `json:"scenario"`
	}{sc})
}

func (h *ReadingsHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	readings, err := h.src.History(r.Context(), domain.HistoryQuery{
		DeviceID: chi.URLParam(r, "deviceId"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Window:   q.Get("window"),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope[domain.HistoricalReading]{Data: readings})
}

func (h *ReadingsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.src.DailyStats(r.Context(), q.Get("device_id"), q.Get("date"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
