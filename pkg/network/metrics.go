package network

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every Prometheus collector the network layer exposes.
// NewMetrics(nil) creates every collector but skips registration. A Server
// may also be given a nil *Metrics, in which case it records nothing; the
// handler code nil-checks it before every update.
type Metrics struct {
	PeerCount        prometheus.Gauge
	ActivePeerCount  prometheus.Gauge
	CandidateCount   prometheus.Gauge
	IBDMode          prometheus.Gauge
	FramesDiscarded  *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	PingRTT          prometheus.Histogram
}

// NewMetrics creates the collector set and registers it with reg, if reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "peers",
			Help: "Number of peer slots currently bound to a connection.",
		}),
		ActivePeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "active_peers",
			Help: "Number of peers that have completed the handshake.",
		}),
		CandidateCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "candidates",
			Help: "Number of known candidate addresses.",
		}),
		IBDMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "ibd_mode",
			Help: "1 if the node currently believes it is in initial block download.",
		}),
		FramesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "frames_discarded_total",
			Help: "Frames discarded by the stream framer, by reason.",
		}, []string{"reason"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "messages_received_total",
			Help: "Messages successfully decoded and dispatched, by command.",
		}, []string{"command"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "messages_sent_total",
			Help: "Messages enqueued for sending, by command.",
		}, []string{"command"}),
		PingRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctbc", Subsystem: "network", Name: "ping_rtt_seconds",
			Help:    "Measured ping round-trip time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PeerCount, m.ActivePeerCount, m.CandidateCount, m.IBDMode,
			m.FramesDiscarded, m.MessagesReceived, m.MessagesSent, m.PingRTT,
		)
	}
	return m
}
