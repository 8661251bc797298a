package connections

import "github.com/prometheus/client_golang/prometheus"

const (
	reasonQueueFull = "queue_full"
	reasonClosed    = "closed"
)

var stats = metrics{
	dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfadapter",
		Subsystem: "connections",
		Name:      "packets_dropped",
		Help:      "Number of packets not queued to an outbound end point, by reason",
	}, []string{
		"reason",
	}),
}

type metrics struct {
	dropped *prometheus.CounterVec
}

func init() {
	prometheus.MustRegister(stats.dropped)
}

func (m *metrics) Dropped(reason string) {
	m.dropped.WithLabelValues(reason).Add(1)
}
