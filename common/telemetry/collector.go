package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xhhao/redisconnector/common/redis"
)

const namespace = "redis_connector"

// FacadeSource is the part of the Redis facade the collector reads
type FacadeSource interface {
	State() redis.State
	Pool() *redis.Pool
}

var states = []redis.State{redis.StateUninitialized, redis.StateAvailable, redis.StateDegraded}

// FacadeCollector exports facade state and pool usage at scrape time
type FacadeCollector struct {
	source FacadeSource

	available  *prometheus.Desc
	state      *prometheus.Desc
	borrows    *prometheus.Desc
	inUse      *prometheus.Desc
	maxTotal   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	timeouts   *prometheus.Desc
}

// NewFacadeCollector creates a collector over source
func NewFacadeCollector(source FacadeSource) *FacadeCollector {
	return &FacadeCollector{
		source: source,
		available: prometheus.NewDesc(namespace+"_available",
			"1 when the facade holds a pool whose probe succeeded.", nil, nil),
		state: prometheus.NewDesc(namespace+"_state",
			"Current facade state, 1 for the active state.", []string{"state"}, nil),
		borrows: prometheus.NewDesc(namespace+"_pool_borrows_total",
			"Connections borrowed from the current pool.", nil, nil),
		inUse: prometheus.NewDesc(namespace+"_pool_in_use",
			"Connections currently borrowed.", nil, nil),
		maxTotal: prometheus.NewDesc(namespace+"_pool_max_total",
			"Borrow ceiling of the current pool.", nil, nil),
		totalConns: prometheus.NewDesc(namespace+"_pool_conns",
			"Open connections held by the driver.", nil, nil),
		idleConns: prometheus.NewDesc(namespace+"_pool_idle_conns",
			"Idle connections held by the driver.", nil, nil),
		timeouts: prometheus.NewDesc(namespace+"_pool_timeouts_total",
			"Driver waits for a free connection that timed out.", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *FacadeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.available
	ch <- c.state
	ch <- c.borrows
	ch <- c.inUse
	ch <- c.maxTotal
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.timeouts
}

// Collect implements prometheus.Collector. Pool metrics are only emitted
// while the facade holds a pool.
func (c *FacadeCollector) Collect(ch chan<- prometheus.Metric) {
	current := c.source.State()

	available := 0.0
	if current == redis.StateAvailable {
		available = 1
	}
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, available)

	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, s.String())
	}

	pool := c.source.Pool()
	if pool == nil {
		return
	}
	stats := pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.borrows, prometheus.CounterValue, float64(stats.Borrows))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(c.maxTotal, prometheus.GaugeValue, float64(stats.MaxTotal))
	if stats.Redis != nil {
		ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stats.Redis.TotalConns))
		ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stats.Redis.IdleConns))
		ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Redis.Timeouts))
	}
}

// NewRegistry builds a registry holding the facade collector plus the Go
// runtime and process collectors
func NewRegistry(source FacadeSource) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		NewFacadeCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// MetricsHandler serves reg in the Prometheus exposition format
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
