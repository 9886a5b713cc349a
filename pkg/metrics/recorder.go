package metrics

import (
	"net/http"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects protocol metrics for one device.
type Recorder struct {
	sent        *prometheus.CounterVec
	received    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	similarity  prometheus.Histogram
}

// NewRecorder creates a Recorder whose metric names start with namespace.
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "packets_sent_total",
			Help:      "Packets handed to the transport, by message type.",
		}, []string{"type"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "packets_received_total",
			Help:      "Well-formed packets received, by message type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "packets_dropped_total",
			Help:      "Packets dropped or ignored, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "transitions_total",
			Help:      "State transitions.",
		}, []string{"from", "to"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "state",
			Help:      "1 for the current pairing state, 0 otherwise.",
		}, []string{"state"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "similarity_score",
			Help:      "Dice similarity of received HELLO bitmasks.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
	}
	for _, s := range states {
		r.state.WithLabelValues(s.String()).Set(0)
	}
	return r
}

var states = []wire.State{wire.StateSearching, wire.StateProposing, wire.StatePaired}

// PacketSent implements pairing.Metrics.
func (r *Recorder) PacketSent(t wire.MessageType) {
	r.sent.WithLabelValues(t.String()).Inc()
}

// PacketReceived implements pairing.Metrics.
func (r *Recorder) PacketReceived(t wire.MessageType) {
	r.received.WithLabelValues(t.String()).Inc()
}

// PacketDropped implements pairing.Metrics.
func (r *Recorder) PacketDropped(reason string) {
	r.dropped.WithLabelValues(reason).Inc()
}

// StateChanged implements pairing.Metrics.
func (r *Recorder) StateChanged(from, to wire.State) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
	for _, s := range states {
		v := 0.0
		if s == to {
			v = 1
		}
		r.state.WithLabelValues(s.String()).Set(v)
	}
}

// SimilarityObserved implements pairing.Metrics.
func (r *Recorder) SimilarityObserved(score int) {
	r.similarity.Observe(float64(score))
}

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	r.sent.Describe(ch)
	r.received.Describe(ch)
	r.dropped.Describe(ch)
	r.transitions.Describe(ch)
	r.state.Describe(ch)
	r.similarity.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.sent.Collect(ch)
	r.received.Collect(ch)
	r.dropped.Collect(ch)
	r.transitions.Collect(ch)
	r.state.Collect(ch)
	r.similarity.Collect(ch)
}

// Handler returns an HTTP handler serving a registry that holds r and the
// Go runtime collectors.
func Handler(r *Recorder) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(r); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

var _ prometheus.Collector = (*Recorder)(nil)
