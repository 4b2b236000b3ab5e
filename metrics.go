package tunping

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const metricsNamespace = "tunping"

// Drop reasons used as the "reason" label of FramesDropped.
const (
	DropReasonMalformed = "malformed"
	DropReasonNotICMP   = "not_icmp"
	DropReasonNotEcho   = "not_echo"
	DropReasonTruncated = "truncated"
	DropReasonEthertype = "ethertype"
)

// Metrics contains the Prometheus metrics of a responder. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	FramesReceived prometheus.Counter
	RepliesSent    prometheus.Counter
	ArpRepliesSent prometheus.Counter
	FramesDropped  *prometheus.CounterVec
}

// NewMetrics registers the metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames read from the interface",
		}),
		RepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "echo_replies_sent_total",
			Help:      "Total number of ICMP echo replies written to the interface",
		}),
		ArpRepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "arp_replies_sent_total",
			Help:      "Total number of ARP replies written to the interface",
		}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames discarded without a reply, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) received() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

func (m *Metrics) replied() {
	if m == nil {
		return
	}
	m.RepliesSent.Inc()
}

func (m *Metrics) arpReplied() {
	if m == nil {
		return
	}
	m.ArpRepliesSent.Inc()
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// ServeMetrics exposes gatherer on addr under /metrics in the background.
// Shut the returned server down to stop it.
func ServeMetrics(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	WithWaitGroup(func() {
		log.WithField("address", addr).Info("serving metrics")

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("address", addr).Error("metrics server failed")
		}
	})

	return srv
}
