package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts best-effort deliveries per channel.
type NotificationMetrics struct {
	deliveries *prometheus.CounterVec
}

// NewNotificationMetrics registers the delivery counter on reg.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification deliveries by channel and result.",
	}, []string{"channel", "result"})
	reg.MustRegister(deliveries)
	return &NotificationMetrics{deliveries: deliveries}
}

// Delivered records a successful send on channel.
func (m *NotificationMetrics) Delivered(channel string) {
	m.inc(channel, "ok")
}

// Failed records a failed send on channel.
func (m *NotificationMetrics) Failed(channel string) {
	m.inc(channel, "error")
}

func (m *NotificationMetrics) inc(channel, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(channel), result).Inc()
}
