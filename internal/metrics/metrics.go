// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lounge_messages_appended_total",
			Help: "Messages persisted, by scope kind (public or private).",
		},
		[]string{"kind"},
	)

	MessagesTrimmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lounge_messages_trimmed_total",
			Help: "Messages deleted by the retention cap.",
		},
	)

	RealtimeFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lounge_realtime_frames_total",
			Help: "Realtime frames handed to sockets, by outcome (delivered or dropped).",
		},
		[]string{"outcome"},
	)

	RealtimePublishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lounge_realtime_publish_errors_total",
			Help: "Persisted messages whose realtime publish failed.",
		},
	)

	ConnectedSockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lounge_connected_sockets",
			Help: "Realtime sockets currently registered with the hub.",
		},
	)

	LoginRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lounge_login_rejections_total",
			Help: "Rejected login attempts, by reason.",
		},
		[]string{"reason"},
	)

	EmailFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lounge_email_failures_total",
			Help: "Emails that could not be sent, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesAppended,
		MessagesTrimmed,
		RealtimeFrames,
		RealtimePublishErrors,
		ConnectedSockets,
		LoginRejections,
		EmailFailures,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
