package hub

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics exposes /metrics via promhttp (SPEC_FULL.md §4.9
// expansion): subscriber count and events-published-by-tag, alongside
// whatever the pool/receiver packages register against the same
// registry.
type serverMetrics struct {
	handler       http.Handler
	eventsTotal   *prometheus.CounterVec
	subscribers   prometheus.GaugeFunc
}

// EnableMetrics registers Prometheus collectors against reg and wires
// /metrics into this server's mux.
func (s *Server) EnableMetrics(reg *prometheus.Registry) {
	m := &serverMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p25rx",
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Number of hub events published, by tag.",
		}, []string{"tag"}),
		subscribers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "p25rx",
			Subsystem: "hub",
			Name:      "sse_subscribers",
			Help:      "Number of currently connected SSE subscribers.",
		}, func() float64 {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			return float64(len(s.subs))
		}),
	}
	reg.MustRegister(m.eventsTotal, m.subscribers)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	s.metrics = m
}

func (m *serverMetrics) handle(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

func (m *serverMetrics) observe(tag Tag) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(string(tag)).Inc()
}
