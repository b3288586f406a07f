package alert

import (
	"context"
	"sync"

	"github.com/go-patient-monitor/internal/metrics"
)

// UnreadCounter tracks the number of unread alerts by observing the store
// instead of polling it.
type UnreadCounter struct {
	store    *Store
	mu       sync.Mutex
	count    int
	seq      uint64
	seeded   bool
	onChange func(int)

	cancel    func()
	closeOnce sync.Once
}

// NewUnreadCounter subscribes to store and tries to seed the count from its
// current contents. When storage is unavailable the counter starts unseeded
// at zero; the first committed change or a successful Refresh seeds it.
// onChange may be nil; when set it runs after every count change.
func NewUnreadCounter(ctx context.Context, store *Store, onChange func(int)) *UnreadCounter {
	c := &UnreadCounter{store: store, onChange: onChange}
	c.cancel = store.Subscribe(func(ch Change) {
		c.apply(ch.Seq, ch.Unread)
	})
	_ = c.Refresh(ctx)
	return c
}

// Refresh reads the unread count from the store. A snapshot older than the
// last observed change is ignored.
func (c *UnreadCounter) Refresh(ctx context.Context) error {
	n, seq, err := c.store.unreadSnapshot(ctx)
	if err != nil {
		return err
	}
	c.apply(seq, n)
	return nil
}

// Seeded reports whether the count reflects the store's contents.
func (c *UnreadCounter) Seeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeded
}

func (c *UnreadCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Close stops observing the store. It is safe to call more than once.
func (c *UnreadCounter) Close() {
	c.closeOnce.Do(c.cancel)
}

func (c *UnreadCounter) apply(seq uint64, unread int) {
	c.mu.Lock()
	// seq 0 is the initial snapshot of a store nobody has written to yet.
	if c.seeded && (seq < c.seq || (seq == c.seq && seq != 0)) {
		c.mu.Unlock()
		return
	}
	c.seq = seq
	c.seeded = true
	changed := c.count != unread
	c.count = unread
	c.mu.Unlock()

	metrics.UnreadAlerts.Set(float64(unread))
	if changed && c.onChange != nil {
		c.onChange(unread)
	}
}
