// Package alert holds the alert store: the single source of truth for alert
// records within a running session, persisted as one blob under a fixed key.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/metrics"
	"github.com/go-patient-monitor/internal/pkg/id"
	"github.com/go-patient-monitor/internal/pkg/observer"
	"github.com/go-patient-monitor/internal/pkg/validate"
)

// BlobStore is the persistence collaborator. Get returns an error wrapping
// domain.ErrNotFound when key has never been written.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRead     ChangeKind = "read"
	ChangeResolved ChangeKind = "resolved"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeAllRead  ChangeKind = "all_read"
	ChangeCleared  ChangeKind = "cleared"
)

// Change describes one committed mutation. Total and Unread are the counts
// right after the mutation; Seq increases with every commit so observers can
// discard out-of-order deliveries.
type Change struct {
	Seq    uint64
	Kind   ChangeKind
	Alert  *domain.Alert // nil for bulk changes
	Total  int
	Unread int
}

type Option func(*Store)

// WithClock overrides the wall clock used for timestamps and day filters.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id source for Add.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is safe for concurrent use. Mutations are serialized and write-through:
// the new collection is persisted before it replaces the in-memory one, so a
// failed write leaves the store unchanged.
type Store struct {
	blob   BlobStore
	key    string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu     sync.Mutex
	loaded bool
	seq    uint64
	alerts []domain.Alert // most recent first

	observers *observer.Registry[Change]
}

func NewStore(blob BlobStore, key string, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		blob:      blob,
		key:       key,
		logger:    logger,
		now:       time.Now,
		newID:     id.New,
		observers: observer.NewRegistry[Change](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted collection. Every other operation loads lazily,
// so calling Load is only needed to surface storage problems at startup.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Subscribe registers fn for every committed mutation and returns a func that
// removes it. fn runs after the store lock is released.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	h := s.observers.Add(func(c Change) error {
		fn(c)
		return nil
	})
	var once sync.Once
	return func() {
		once.Do(func() { s.observers.Remove(h) })
	}
}

// List returns a snapshot of the alerts matching every predicate in f,
// sorted by timestamp descending.
func (s *Store) List(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, error) {
	s.mu.Lock()
	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var cutoff time.Time
	if f.Days > 0 {
		cutoff = s.now().AddDate(0, 0, -f.Days)
	}
	out := make([]domain.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if matches(a, f, cutoff) {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func matches(a domain.Alert, f domain.AlertFilter, cutoff time.Time) bool {
	if f.DeviceID != "" && a.DeviceID != f.DeviceID {
		return false
	}
	if f.Read != nil && a.Read != *f.Read {
		return false
	}
	if f.Resolved != nil && a.Resolved != *f.Resolved {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if !cutoff.IsZero() && a.Timestamp.Before(cutoff) {
		return false
	}
	return true
}

func (s *Store) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	i := s.indexLocked(alertID)
	if i < 0 {
		return nil, fmt.Errorf("alert not found: %w", domain.ErrNotFound)
	}
	a := s.alerts[i]
	return &a, nil
}

// Add stores a new alert with a fresh id, the current time and both flags
// cleared, at the head of the collection.
func (s *Store) Add(ctx context.Context, in domain.NewAlert) (*domain.Alert, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	a := domain.Alert{
		DeviceID:   in.DeviceID,
		Title:      in.Title,
		Type:       in.Type,
		Severity:   in.Severity,
		Message:    in.Message,
		Provenance: in.Provenance,
	}
	if a.Type == "" {
		a.Type = domain.AlertCustom
	}
	if a.Severity == "" {
		a.Severity = domain.SeverityLow
	}
	if a.Provenance == "" {
		a.Provenance = domain.ProvenanceSensor
	}

	s.mu.Lock()
	a.ID = s.newID()
	a.Timestamp = s.now().UTC()
	change, err := s.prependLocked(ctx, a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify(change)
	return &a, nil
}

// Insert stores a fully formed alert, such as one delivered by the event
// channel or produced by the demo generator. A duplicate live id is rejected
// with domain.ErrConflict.
func (s *Store) Insert(ctx context.Context, a domain.Alert) (*domain.Alert, error) {
	if a.ID == "" {
		return nil, fmt.Errorf("alert id is required: %w", domain.ErrBadRequest)
	}
	if !a.Type.Valid() {
		return nil, fmt.Errorf("unknown alert type %q: %w", a.Type, domain.ErrBadRequest)
	}
	if !a.Severity.Valid() {
		return nil, fmt.Errorf("unknown severity %q: %w", a.Severity, domain.ErrBadRequest)
	}
	if a.Provenance == "" {
		a.Provenance = domain.ProvenanceSensor
	}

	s.mu.Lock()
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.indexLocked(a.ID) >= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("alert %s already stored: %w", a.ID, domain.ErrConflict)
	}
	change, err := s.prependLocked(ctx, a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify(change)
	return &a, nil
}

func (s *Store) prependLocked(ctx context.Context, a domain.Alert) (Change, error) {
	if err := s.loadLocked(ctx); err != nil {
		return Change{}, err
	}
	next := make([]domain.Alert, 0, len(s.alerts)+1)
	next = append(next, a)
	next = append(next, s.alerts...)
	if err := s.commitLocked(ctx, "add", next); err != nil {
		return Change{}, err
	}
	metrics.AlertsStoredTotal.WithLabelValues(string(a.Provenance)).Inc()
	s.logger.Debug("alert stored", "alert_id", a.ID, "device_id", a.DeviceID, "provenance", a.Provenance)
	return s.changeLocked(ChangeAdded, &a), nil
}

// MarkRead reports whether an alert with alertID exists. It is idempotent.
func (s *Store) MarkRead(ctx context.Context, alertID string) (bool, error) {
	return s.setFlag(ctx, alertID, ChangeRead, func(a *domain.Alert) bool {
		if a.Read {
			return false
		}
		a.Read = true
		return true
	})
}

// MarkResolved reports whether an alert with alertID exists. It is
// idempotent and leaves the read flag untouched.
func (s *Store) MarkResolved(ctx context.Context, alertID string) (bool, error) {
	return s.setFlag(ctx, alertID, ChangeResolved, func(a *domain.Alert) bool {
		if a.Resolved {
			return false
		}
		a.Resolved = true
		return true
	})
}

func (s *Store) setFlag(ctx context.Context, alertID string, kind ChangeKind, set func(*domain.Alert) bool) (bool, error) {
	s.mu.Lock()
	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}
	i := s.indexLocked(alertID)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	next := cloneAlerts(s.alerts)
	if !set(&next[i]) {
		s.mu.Unlock()
		return true, nil
	}
	if err := s.commitLocked(ctx, string(kind), next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	updated := next[i]
	change := s.changeLocked(kind, &updated)
	s.mu.Unlock()

	s.notify(change)
	return true, nil
}

// Delete removes the alert entirely and reports whether it existed.
func (s *Store) Delete(ctx context.Context, alertID string) (bool, error) {
	s.mu.Lock()
	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}
	i := s.indexLocked(alertID)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	removed := s.alerts[i]
	next := make([]domain.Alert, 0, len(s.alerts)-1)
	next = append(next, s.alerts[:i]...)
	next = append(next, s.alerts[i+1:]...)
	if err := s.commitLocked(ctx, "delete", next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	change := s.changeLocked(ChangeDeleted, &removed)
	s.mu.Unlock()

	s.notify(change)
	return true, nil
}

func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	next := cloneAlerts(s.alerts)
	for i := range next {
		next[i].Read = true
	}
	if err := s.commitLocked(ctx, "mark_all_read", next); err != nil {
		s.mu.Unlock()
		return err
	}
	change := s.changeLocked(ChangeAllRead, nil)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

// DeleteAll clears the collection. It does not need the previous contents,
// so it succeeds even when the stored blob could not be read.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	if err := s.commitLocked(ctx, "delete_all", nil); err != nil {
		s.mu.Unlock()
		return err
	}
	s.loaded = true
	change := s.changeLocked(ChangeCleared, nil)
	s.mu.Unlock()

	s.notify(change)
	return nil
}

func (s *Store) Stats(ctx context.Context) (domain.AlertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.AlertStats{}, err
	}
	stats := domain.AlertStats{
		Total:      len(s.alerts),
		ByDevice:   make(map[string]int),
		BySeverity: make(map[domain.Severity]int, len(domain.Severities)),
	}
	for _, sev := range domain.Severities {
		stats.BySeverity[sev] = 0
	}
	for _, a := range s.alerts {
		if !a.Read {
			stats.Unread++
		}
		stats.ByDevice[a.DeviceID]++
		stats.BySeverity[a.Severity]++
	}
	return stats, nil
}

// unreadSnapshot returns the unread count with the sequence number of the
// last commit it reflects.
func (s *Store) unreadSnapshot(ctx context.Context) (int, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return 0, 0, err
	}
	return countUnread(s.alerts), s.seq, nil
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	data, err := s.blob.Get(ctx, s.key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.alerts = nil
		s.loaded = true
		return nil
	case err != nil:
		metrics.StorageErrorsTotal.WithLabelValues("load").Inc()
		s.logger.Error("load alerts failed", "key", s.key, "err", err)
		return fmt.Errorf("load alerts: %w: %w", domain.ErrStorageUnavailable, err)
	}
	var alerts []domain.Alert
	if len(data) > 0 {
		if err := json.Unmarshal(data, &alerts); err != nil {
			metrics.StorageErrorsTotal.WithLabelValues("decode").Inc()
			s.logger.Error("stored alerts are unreadable", "key", s.key, "err", err)
			return fmt.Errorf("decode alerts: %w: %w", domain.ErrStorageUnavailable, err)
		}
	}
	s.alerts = alerts
	s.loaded = true
	return nil
}

func (s *Store) commitLocked(ctx context.Context, op string, next []domain.Alert) error {
	if next == nil {
		next = []domain.Alert{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	if err := s.blob.Put(ctx, s.key, data); err != nil {
		metrics.StorageErrorsTotal.WithLabelValues(op).Inc()
		s.logger.Error("persist alerts failed", "op", op, "key", s.key, "err", err)
		return fmt.Errorf("persist alerts: %w: %w", domain.ErrStorageUnavailable, err)
	}
	s.alerts = next
	s.seq++
	metrics.AlertMutationsTotal.WithLabelValues(op).Inc()
	return nil
}

func (s *Store) changeLocked(kind ChangeKind, a *domain.Alert) Change {
	return Change{
		Seq:    s.seq,
		Kind:   kind,
		Alert:  a,
		Total:  len(s.alerts),
		Unread: countUnread(s.alerts),
	}
}

func (s *Store) notify(c Change) {
	for _, f := range s.observers.Notify(c) {
		s.logger.Warn("alert observer failed", "kind", c.Kind, "err", f.Err)
	}
}

func (s *Store) indexLocked(alertID string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			return i
		}
	}
	return -1
}

func cloneAlerts(in []domain.Alert) []domain.Alert {
	out := make([]domain.Alert, len(in))
	copy(out, in)
	return out
}

func countUnread(alerts []domain.Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.Read {
			n++
		}
	}
	return n
}
