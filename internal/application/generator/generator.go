// Package generator produces synthetic demo alerts, once or on a fixed
// cadence. Every record it emits carries demo provenance.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/pkg/id"
)

// Rand is the random source; *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// globalRand uses the concurrency-safe top-level math/rand/v2 source.
type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Sink receives every generated alert.
type Sink func(ctx context.Context, a domain.Alert)

type Option func(*Generator)

func WithRand(r Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

type Generator struct {
	logger *slog.Logger
	now    func() time.Time

	rndMu sync.Mutex
	rnd   Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		logger: logger,
		now:    time.Now,
		rnd:    globalRand{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateOne picks a template uniformly at random and renders it.
func (g *Generator) GenerateOne() domain.Alert {
	g.rndMu.Lock()
	t := Templates[g.rnd.IntN(len(Templates))]
	v := t.Value(g.rnd)
	g.rndMu.Unlock()

	ts := g.now().UTC()
	return domain.Alert{
		ID:         id.NewAt(ts),
		DeviceID:   t.DeviceID,
		Title:      t.Title,
		Type:       t.Type,
		Severity:   t.Severity,
		Message:    t.Render(v),
		Timestamp:  ts,
		Provenance: domain.ProvenanceDemo,
	}
}

// Start emits one alert immediately and then one per interval until Stop is
// called or ctx is done. Starting a running generator replaces the previous
// cycle. sink runs on the generator goroutine and must not call Stop.
func (g *Generator) Start(ctx context.Context, interval time.Duration, sink Sink) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive: %w", domain.ErrBadRequest)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	g.mu.Lock()
	prevCancel, prevDone := g.cancel, g.done
	g.cancel = cancel
	g.done = done
	g.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	g.logger.Info("demo generator started", "interval", interval)
	go g.run(runCtx, interval, sink, done)
	return nil
}

func (g *Generator) run(ctx context.Context, interval time.Duration, sink Sink, done chan struct{}) {
	defer func() {
		g.mu.Lock()
		if g.done == done {
			g.cancel()
			g.cancel = nil
			g.done = nil
		}
		g.mu.Unlock()
		close(done)
	}()

	// A later Start or Stop may already have cancelled this cycle.
	if ctx.Err() != nil {
		return
	}
	sink(ctx, g.GenerateOne())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sink(ctx, g.GenerateOne())
		}
	}
}

// Stop halts the running cycle and waits for it to exit. It is a no-op when
// nothing is running.
func (g *Generator) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel = nil
	g.done = nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	g.logger.Info("demo generator stopped")
}

func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}
