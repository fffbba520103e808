// Package metrics exposes Prometheus instrumentation for the RADIUS
// server: packet volume, drops, and handler errors per service and
// source host.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "radiusd"
	subsystem = "server"
)

// Label names for RADIUS server metrics.
const (
	labelService = "service" // auth | acct | coa
	labelSource  = "source"  // source host IP
)

// -------------------------------------------------------------------------
// Collector — Prometheus RADIUS Server Metrics
// -------------------------------------------------------------------------

// Collector holds all RADIUS server Prometheus metrics.
//
//   - PacketsReceived/PacketsSent track request/reply volume per service.
//   - PacketsDropped tracks datagrams dropped before a reply was sent
//     (malformed packet, no handler, handler error).
//   - HostRejections tracks datagrams rejected by the source-address
//     allow-list.
type Collector struct {
	PacketsReceived *prometheus.CounterVec
	PacketsSent     *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec
	HostRejections  *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PacketsReceived,
		c.PacketsSent,
		c.PacketsDropped,
		c.HostRejections,
	)

	return c
}

func newMetrics() *Collector {
	serviceLabels := []string{labelService}
	rejectLabels := []string{labelSource}

	return &Collector{
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_received_total",
			Help:      "Total RADIUS request datagrams received, by service.",
		}, serviceLabels),

		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_sent_total",
			Help:      "Total RADIUS reply datagrams sent, by service.",
		}, serviceLabels),

		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_dropped_total",
			Help:      "Total RADIUS request datagrams dropped before a reply, by service.",
		}, serviceLabels),

		HostRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "host_rejections_total",
			Help:      "Total datagrams rejected by the source-address allow-list.",
		}, rejectLabels),
	}
}

// IncReceived increments the received-packets counter for svc.
func (c *Collector) IncReceived(svc string) {
	c.PacketsReceived.WithLabelValues(svc).Inc()
}

// IncSent increments the sent-replies counter for svc.
func (c *Collector) IncSent(svc string) {
	c.PacketsSent.WithLabelValues(svc).Inc()
}

// IncDropped increments the dropped-requests counter for svc.
func (c *Collector) IncDropped(svc string) {
	c.PacketsDropped.WithLabelValues(svc).Inc()
}

// IncHostRejected increments the allow-list rejection counter for source.
func (c *Collector) IncHostRejected(source string) {
	c.HostRejections.WithLabelValues(source).Inc()
}
