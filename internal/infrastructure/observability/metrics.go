package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry            *prometheus.Registry
	ActiveConnection    prometheus.Gauge
	FeedEventsTotal     *prometheus.CounterVec
	RoundsResolvedTotal *prometheus.CounterVec
	GamesEndedTotal     prometheus.Counter
	StoreErrorsTotal    *prometheus.CounterVec
	StaleSessionsTotal  prometheus.Counter
	DecodeErrorsTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ActiveConnection: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "battle_bridge",
			Name:      "active_connection",
			Help:      "1 when a live upstream connection is bound, else 0",
		}),
		FeedEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "feed_events_total",
			Help:      "Total feed events processed by type",
		}, []string{"type"}),
		RoundsResolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "rounds_resolved_total",
			Help:      "Total battle rounds resolved by path",
		}, []string{"path"}),
		GamesEndedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "games_ended_total",
			Help:      "Total games ended (a side reached zero hearts)",
		}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "store_errors_total",
			Help:      "Total store operation failures by op",
		}, []string{"op"}),
		StaleSessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "stale_session_skips_total",
			Help:      "Total event writes skipped because the session row was gone",
		}),
		DecodeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battle_bridge",
			Name:      "decode_errors_total",
			Help:      "Total feed payloads dropped as undecodable",
		}),
	}
	r.MustRegister(m.ActiveConnection, m.FeedEventsTotal, m.RoundsResolvedTotal,
		m.GamesEndedTotal, m.StoreErrorsTotal, m.StaleSessionsTotal, m.DecodeErrorsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
