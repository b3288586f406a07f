package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-patient-monitor/internal/application/generator"
	"github.com/go-patient-monitor/internal/domain"
)

// DemoGenerator produces synthetic alerts.
type DemoGenerator interface {
	Start(ctx context.Context, interval time.Duration, sink generator.Sink) error
	Stop()
	Running() bool
	SeedDemo(ctx context.Context, store generator.Seeder) ([]domain.Alert, error)
}

// DemoHandler drives the demo alert generator.
type DemoHandler struct {
	gen             DemoGenerator
	store           generator.Seeder
	defaultInterval time.Duration
	logger          *slog.Logger
}

func NewDemoHandler(gen DemoGenerator, store generator.Seeder, defaultInterval time.Duration, logger *slog.Logger) *DemoHandler {
	return &DemoHandler{gen: gen, store: store, defaultInterval: defaultInterval, logger: logger}
}

// maxGeneratorIntervalMs bounds interval_ms so the conversion to a
// time.Duration cannot overflow.
const maxGeneratorIntervalMs = int64(24 * time.Hour / time.Millisecond)

type generatorStatus struct {
	Running    bool  `json:"running"`
	IntervalMs int64 `json:"interval_ms,omitempty"`
}

func (h *DemoHandler) Start(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntervalMs int64 `json:"interval_ms"`
	}
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.IntervalMs < 0 || body.IntervalMs > maxGeneratorIntervalMs {
		httpError(w, fmt.Errorf("interval_ms must be between 1 and %d: %w", maxGeneratorIntervalMs, domain.ErrBadRequest))
		return
	}
	interval := h.defaultInterval
	if body.IntervalMs != 0 {
		interval = time.Duration(body.IntervalMs) * time.Millisecond
	}

	// The cycle outlives the request; shutdown stops it through Stop.
	ctx := context.WithoutCancel(r.Context())
	if err := h.gen.Start(ctx, interval, h.insert); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generatorStatus{Running: true, IntervalMs: interval.Milliseconds()})
}

func (h *DemoHandler) Stop(w http.ResponseWriter, _ *http.Request) {
	h.gen.Stop()
	writeJSON(w, http.StatusOK, generatorStatus{Running: h.gen.Running()})
}

func (h *DemoHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, generatorStatus{Running: h.gen.Running()})
}

func (h *DemoHandler) Seed(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.gen.SeedDemo(r.Context(), h.store)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope[domain.Alert]{Data: alerts})
}

func (h *DemoHandler) insert(ctx context.Context, a domain.Alert) {
	if _, err := h.store.Insert(ctx, a); err != nil {
		h.logger.Warn("demo alert not stored", "alert_id", a.ID, "error", err)
	}
}
