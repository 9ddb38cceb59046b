// Package lockmetrics exports rwlock events as prometheus metrics.
package lockmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// Collector is an rwlock.Observer that is also a prometheus.Collector.
type Collector struct {
	acquisitions  *prometheus.CounterVec
	releases      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	violations    prometheus.Counter
	waiters       *prometheus.GaugeVec
}

var (
	_ rwlock.Observer      = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// New creates a Collector. Every metric carries a constant "lock" label.
func New(name string) *Collector {
	labels := prometheus.Labels{"lock": name}
	return &Collector{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rwlock",
			Name:        "acquisitions_total",
			Help:        "Granted lock acquisitions.",
			ConstLabels: labels,
		}, []string{"mode", "waited"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rwlock",
			Name:        "releases_total",
			Help:        "Released lock acquisitions.",
			ConstLabels: labels,
		}, []string{"mode"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rwlock",
			Name:        "cancellations_total",
			Help:        "Lock calls abandoned before being granted.",
			ConstLabels: labels,
		}, []string{"mode"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rwlock",
			Name:        "protocol_violations_total",
			Help:        "Releases by callers that did not hold the lock.",
			ConstLabels: labels,
		}),
		waiters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "rwlock",
			Name:        "waiters",
			Help:        "Callers currently suspended in a lock call.",
			ConstLabels: labels,
		}, []string{"mode"}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.acquisitions.Describe(ch)
	c.releases.Describe(ch)
	c.cancellations.Describe(ch)
	c.violations.Describe(ch)
	c.waiters.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.acquisitions.Collect(ch)
	c.releases.Collect(ch)
	c.cancellations.Collect(ch)
	c.violations.Collect(ch)
	c.waiters.Collect(ch)
}

func (c *Collector) Waiting(_ rwlock.Caller, m rwlock.Mode) {
	c.waiters.WithLabelValues(m.String()).Inc()
}

func (c *Collector) Granted(_ rwlock.Caller, m rwlock.Mode, waited bool) {
	if waited {
		c.waiters.WithLabelValues(m.String()).Dec()
	}
	c.acquisitions.WithLabelValues(m.String(), strconv.FormatBool(waited)).Inc()
}

func (c *Collector) Cancelled(_ rwlock.Caller, m rwlock.Mode, waited bool) {
	if waited {
		c.waiters.WithLabelValues(m.String()).Dec()
	}
	c.cancellations.WithLabelValues(m.String()).Inc()
}

func (c *Collector) Released(_ rwlock.Caller, m rwlock.Mode) {
	c.releases.WithLabelValues(m.String()).Inc()
}

func (c *Collector) Violation(error) {
	c.violations.Inc()
}
