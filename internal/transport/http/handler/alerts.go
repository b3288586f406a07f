package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-patient-monitor/internal/domain"
)

// AlertStore is the subset of the alert store the handlers drive.
type AlertStore interface {
	List(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, error)
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	Add(ctx context.Context, in domain.NewAlert) (*domain.Alert, error)
	MarkRead(ctx context.Context, alertID string) (bool, error)
	MarkResolved(ctx context.Context, alertID string) (bool, error)
	Delete(ctx context.Context, alertID string) (bool, error)
	MarkAllRead(ctx context.Context) error
	DeleteAll(ctx context.Context) error
	Stats(ctx context.Context) (domain.AlertStats, error)
}

// UnreadCounter reports the cached unread badge count.
type UnreadCounter interface {
	Count() int
}

// AlertHandler handles alert endpoints.
type AlertHandler struct {
	store  AlertStore
	unread UnreadCounter
}

func NewAlertHandler(store AlertStore, unread UnreadCounter) *AlertHandler {
	return &AlertHandler{store: store, unread: unread}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseAlertFilter(r)
	if err != nil {
		httpError(w, err)
		return
	}
	alerts, err := h.store.List(r.Context(), f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope[domain.Alert]{Data: alerts})
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewAlert
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.store.Add(r.Context(), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.MarkRead, "alert marked as read")
}

func (h *AlertHandler) MarkResolved(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.MarkResolved, "alert resolved")
}

func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.store.Delete, "alert deleted")
}

func (h *AlertHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (bool, error), msg string) {
	found, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *AlertHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.store.MarkAllRead(r.Context()); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "all alerts marked as read"})
}

func (h *AlertHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAll(r.Context()); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "all alerts deleted"})
}

func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AlertHandler) UnreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CountEnvelope{Count: h.unread.Count()})
}

func parseAlertFilter(r *http.Request) (domain.AlertFilter, error) {
	q := r.URL.Query()
	f := domain.AlertFilter{DeviceID: q.Get("device_id")}

	var err error
	if f.Read, err = parseOptionalBool(q.Get("read")); err != nil {
		return f, fmt.Errorf("read: %w", err)
	}
	if f.Resolved, err = parseOptionalBool(q.Get("resolved")); err != nil {
		return f, fmt.Errorf("resolved: %w", err)
	}
	if s := q.Get("severity"); s != "" {
		f.Severity = domain.Severity(s)
		if !f.Severity.Valid() {
			return f, fmt.Errorf("severity %q: %w", s, domain.ErrBadRequest)
		}
	}
	if d := q.Get("days"); d != "" {
		n, convErr := strconv.Atoi(d)
		if convErr != nil || n < 0 {
			return f, fmt.Errorf("days %q: %w", d, domain.ErrBadRequest)
		}
		f.Days = n
	}
	return f, nil
}

func parseOptionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", v, domain.ErrBadRequest)
	}
	return &b, nil
}
