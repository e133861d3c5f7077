// Package metrics instruments the engine with Prometheus gauges,
// counters, and histograms: sub-pool counts, active borrows, open
// transactions, and query durations/outcomes. Instrumentation is ambient
// — nothing in sqlengine depends on this package; a composition root
// wires a *Collector's methods into the call sites it cares about.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every Prometheus metric the engine reports.
type Collector struct {
	Registry *prometheus.Registry

	poolCount        *prometheus.GaugeVec
	activeBorrows    *prometheus.GaugeVec
	openTransactions prometheus.Gauge
	queryDuration    *prometheus.HistogramVec
	queriesTotal     *prometheus.CounterVec
	poolEvictions    *prometheus.CounterVec
}

// New creates and registers every metric on a fresh registry. Safe to call
// more than once (e.g. in tests); each call is independent.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		poolCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmcp_subpool_count",
				Help: "Number of live sub-pools per connection",
			},
			[]string{"connection_id"},
		),
		activeBorrows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmcp_subpool_active_borrows",
				Help: "Number of outstanding ResolvePool borrows per connection/target",
			},
			[]string{"connection_id", "target"},
		),
		openTransactions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dbmcp_transactions_open",
				Help: "Number of currently open transactions across all connections",
			},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbmcp_query_duration_seconds",
				Help:    "Duration of query/execute/explain calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"connection_id", "backend", "operation"},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbmcp_queries_total",
				Help: "Total query/execute/explain calls by outcome",
			},
			[]string{"connection_id", "backend", "operation", "outcome"},
		),
		poolEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbmcp_subpool_evictions_total",
				Help: "Total sub-pools closed by the idle sweeper",
			},
			[]string{"connection_id"},
		),
	}

	reg.MustRegister(
		c.poolCount,
		c.activeBorrows,
		c.openTransactions,
		c.queryDuration,
		c.queriesTotal,
		c.poolEvictions,
	)
	return c
}

// SetPoolCount reports how many live sub-pools a connection's manager
// currently holds.
func (c *Collector) SetPoolCount(connectionID string, n int) {
	c.poolCount.WithLabelValues(connectionID).Set(float64(n))
}

// SetActiveBorrows reports the active_count for one connection/target pair.
func (c *Collector) SetActiveBorrows(connectionID, target string, n int64) {
	c.activeBorrows.WithLabelValues(connectionID, target).Set(float64(n))
}

// SetOpenTransactions reports the total number of open transactions.
func (c *Collector) SetOpenTransactions(n int) {
	c.openTransactions.Set(float64(n))
}

// ObserveCall records one query/execute/explain call's duration and
// success/failure outcome.
func (c *Collector) ObserveCall(connectionID, backend, operation string, d time.Duration, err error) {
	c.queryDuration.WithLabelValues(connectionID, backend, operation).Observe(d.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.queriesTotal.WithLabelValues(connectionID, backend, operation, outcome).Inc()
}

// PoolEvicted increments the idle-sweeper eviction counter for a connection.
func (c *Collector) PoolEvicted(connectionID string) {
	c.poolEvictions.WithLabelValues(connectionID).Inc()
}

// RemoveConnection drops every label series scoped to connectionID, e.g.
// after it's closed via registry.CloseAll.
func (c *Collector) RemoveConnection(connectionID string) {
	c.poolCount.DeleteLabelValues(connectionID)
	c.activeBorrows.DeletePartialMatch(prometheus.Labels{"connection_id": connectionID})
	c.queryDuration.DeletePartialMatch(prometheus.Labels{"connection_id": connectionID})
	c.queriesTotal.DeletePartialMatch(prometheus.Labels{"connection_id": connectionID})
	c.poolEvictions.DeleteLabelValues(connectionID)
}
