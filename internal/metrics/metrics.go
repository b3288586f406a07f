// Package metrics defines Prometheus metrics for the alert pipeline.
//
// All metrics are registered with the default Prometheus registry and served
// by promhttp on /metrics.
//
// Metric naming follows Prometheus conventions:
//   - patientmon_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AlertsStoredTotal counts alerts inserted into the store by provenance.
	AlertsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_alerts_stored_total",
			Help: "Total alerts inserted into the alert store by provenance.",
		},
		[]string{"provenance"},
	)

	// AlertMutationsTotal counts store mutations by operation.
	AlertMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_alert_mutations_total",
			Help: "Total alert store mutations by operation.",
		},
		[]string{"op"},
	)

	// StorageErrorsTotal counts persistence failures by operation.
	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_storage_errors_total",
			Help: "Total alert persistence failures by operation.",
		},
		[]string{"op"},
	)

	// UnreadAlerts mirrors the unread badge count.
	UnreadAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patientmon_alerts_unread",
			Help: "Number of unread alerts in the store.",
		},
	)

	// ChannelEventsTotal counts events received on the event channel by name.
	ChannelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_channel_events_total",
			Help: "Total events received on the event channel.",
		},
		[]string{"event"},
	)

	// ChannelListenerErrorsTotal counts listener callbacks that failed or panicked.
	ChannelListenerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_channel_listener_errors_total",
			Help: "Total listener callback failures on the event channel.",
		},
		[]string{"event"},
	)

	// ChannelMalformedTotal counts frames that could not be decoded.
	ChannelMalformedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "patientmon_channel_malformed_frames_total",
			Help: "Total undecodable frames received on the event channel.",
		},
	)

	// ChannelConnected is 1 while the event channel is connected.
	ChannelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patientmon_channel_connected",
			Help: "Whether the event channel is currently connected.",
		},
	)

	// ChannelReconnectsTotal counts automatic reconnect attempts by outcome.
	ChannelReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_channel_reconnects_total",
			Help: "Total automatic reconnect attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// NotificationsPublishedTotal counts push notifications by outcome.
	NotificationsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientmon_notifications_published_total",
			Help: "Total alert push notifications by outcome.",
		},
		[]string{"outcome"},
	)

	// HubClients is the number of WebSocket clients attached to the event hub.
	HubClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patientmon_hub_clients",
			Help: "Number of WebSocket clients connected to the event hub.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AlertsStoredTotal,
		AlertMutationsTotal,
		StorageErrorsTotal,
		UnreadAlerts,
		ChannelEventsTotal,
		ChannelListenerErrorsTotal,
		ChannelMalformedTotal,
		ChannelConnected,
		ChannelReconnectsTotal,
		NotificationsPublishedTotal,
		HubClients,
	)
}

// SetChannelConnected records the channel connection state.
func SetChannelConnected(connected bool) {
	if connected {
		ChannelConnected.Set(1)
		return
	}
	ChannelConnected.Set(0)
}
