package channel

import (
	"github.com/go-patient-monitor/internal/metrics"
	"github.com/go-patient-monitor/internal/pkg/observer"
	"github.com/go-patient-monitor/internal/protocol"
)

// AddListener registers cb for event after any existing listeners.
func (c *Client) AddListener(event protocol.EventName, cb Callback) *Subscription {
	c.listenersMu.Lock()
	reg, ok := c.listeners[event]
	if !ok {
		reg = observer.NewRegistry[protocol.Envelope]()
		c.listeners[event] = reg
	}
	c.listenersMu.Unlock()

	h := reg.Add(observer.Func[protocol.Envelope](cb))
	return &Subscription{event: event, handle: h}
}

// RemoveListener drops sub from event and reports whether it was registered.
func (c *Client) RemoveListener(event protocol.EventName, sub *Subscription) bool {
	if sub == nil || sub.event != event {
		return false
	}
	c.listenersMu.Lock()
	reg, ok := c.listeners[event]
	c.listenersMu.Unlock()
	if !ok {
		return false
	}
	return reg.Remove(sub.handle)
}

func (c *Client) ListenerCount(event protocol.EventName) int {
	c.listenersMu.Lock()
	reg, ok := c.listeners[event]
	c.listenersMu.Unlock()
	if !ok {
		return 0
	}
	return reg.Len()
}

// clearListeners empties every registry in place, so a subscription taken
// before Disconnect can no longer be removed or invoked.
func (c *Client) clearListeners() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for event, reg := range c.listeners {
		reg.Clear()
		delete(c.listeners, event)
	}
}

func (c *Client) dispatch(frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		metrics.ChannelMalformedTotal.Inc()
		c.logger.Warn("malformed event frame skipped", "err", err)
		return
	}
	metrics.ChannelEventsTotal.WithLabelValues(eventLabel(env.Event)).Inc()

	c.listenersMu.Lock()
	reg, ok := c.listeners[env.Event]
	c.listenersMu.Unlock()
	if !ok {
		return
	}
	for _, f := range reg.Notify(env) {
		c.reportError(env.Event, f.Err)
	}
}

func (c *Client) reportError(event protocol.EventName, err error) {
	if event != "" {
		metrics.ChannelListenerErrorsTotal.WithLabelValues(eventLabel(event)).Inc()
		c.logger.Error("event listener failed", "event", event, "err", err)
	}
	if c.opts.OnError != nil {
		c.opts.OnError(event, err)
	}
}

// eventLabel keeps metric cardinality bounded to the known event names.
func eventLabel(e protocol.EventName) string {
	switch e {
	case protocol.EventNewAlert, protocol.EventDeviceUpdate, protocol.EventStatsUpdate:
		return string(e)
	}
	return "other"
}
