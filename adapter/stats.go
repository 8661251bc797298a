package adapter

import "github.com/prometheus/client_golang/prometheus"

var stats = metrics{
	notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfadapter",
		Subsystem: "adapter",
		Name:      "notifications_dispatched",
		Help:      "Number of notifications dispatched to applications",
	}, []string{
		"notification",
	}),

	packetIn: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfadapter",
		Subsystem: "adapter",
		Name:      "packet_in_received",
		Help:      "Number of packet in messages received, by table and whether a handler existed",
	}, []string{
		"table",
		"handled",
	}),

	portStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfadapter",
		Subsystem: "adapter",
		Name:      "port_status_received",
		Help:      "Number of port status messages received, by reason",
	}, []string{
		"reason",
	}),

	connections: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dfadapter",
		Subsystem: "adapter",
		Name:      "switch_connections",
		Help:      "Number of completed features exchanges with the switch",
	}),
}

type metrics struct {
	notifications *prometheus.CounterVec
	packetIn      *prometheus.CounterVec
	portStatus    *prometheus.CounterVec
	connections   prometheus.Counter
}

func init() {
	prometheus.MustRegister(stats.notifications)
	prometheus.MustRegister(stats.packetIn)
	prometheus.MustRegister(stats.portStatus)
	prometheus.MustRegister(stats.connections)
}

func (m *metrics) Dispatched(name string) {
	m.notifications.WithLabelValues(name).Add(1)
}

func (m *metrics) PacketIn(table string, handled bool) {
	h := "false"
	if handled {
		h = "true"
	}
	m.packetIn.WithLabelValues(table, h).Add(1)
}

func (m *metrics) PortStatus(reason string) {
	m.portStatus.WithLabelValues(reason).Add(1)
}

func (m *metrics) Connected() {
	m.connections.Add(1)
}
