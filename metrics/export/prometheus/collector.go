// Package prometheus exposes the engine's counters as a
// prometheus.Collector, ready for promhttp.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	securecore "github.com/caredesk/securecore"
)

// Source is what the collector scrapes. *securecore.Engine satisfies it.
type Source interface {
	MetricsSnapshot() securecore.MetricsSnapshot
	AuditDropped() uint64
}

// Collector bridges engine counters into the Prometheus registry. Register
// it once per engine:
//
//	prometheus.MustRegister(scprom.NewCollector(engine))
type Collector struct {
	source  Source
	descs   map[securecore.MetricID]*prometheus.Desc
	dropped *prometheus.Desc
}

// NewCollector builds a collector over the given source.
func NewCollector(source Source) *Collector {
	descs := make(map[securecore.MetricID]*prometheus.Desc, len(securecore.MetricNames))
	for id, name := range securecore.MetricNames {
		descs[securecore.MetricID(id)] = prometheus.NewDesc(
			"securecore_"+name,
			"Engine counter "+name+".",
			nil, nil,
		)
	}
	return &Collector{
		source: source,
		descs:  descs,
		dropped: prometheus.NewDesc(
			"securecore_audit_dropped_total",
			"Audit entries dropped due to buffer backpressure.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	for id, desc := range c.descs {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snapshot.Counters[id]))
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}
