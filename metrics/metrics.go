// Package metrics exports register activity to Prometheus
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nasa-jpl/servolab/activity"
)

// Collector counts marks and value changes.  It implements both
// activity.MarkHandler and activity.ValueHandler and may be installed on a
// tracker directly or through a fanout.
type Collector struct {
	marksTotal   *prometheus.CounterVec
	marksActive  *prometheus.GaugeVec
	valueChanges *prometheus.CounterVec

	mu     sync.Mutex
	active map[activity.MarkKey]struct{}
}

// NewCollector creates a collector and registers its metrics with reg.
// reg may be nil, in which case nothing is registered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		marksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "servolab",
				Subsystem: "registers",
				Name:      "marks_total",
				Help:      "Total number of marks set, including refreshes",
			},
			[]string{"kind"},
		),
		marksActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "servolab",
				Subsystem: "registers",
				Name:      "marks_active",
				Help:      "Number of currently active marks",
			},
			[]string{"kind"},
		),
		valueChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "servolab",
				Subsystem: "registers",
				Name:      "value_changes_total",
				Help:      "Total number of observed register value changes",
			},
			[]string{"register"},
		),
		active: make(map[activity.MarkKey]struct{}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.marksTotal, c.marksActive, c.valueChanges} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Mark implements activity.MarkHandler
func (c *Collector) Mark(register string, kind activity.EventKind, active bool) {
	k := activity.MarkKey{Register: register, Kind: kind}
	label := kind.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	_, was := c.active[k]
	if active {
		c.marksTotal.WithLabelValues(label).Inc()
		if !was {
			c.active[k] = struct{}{}
			c.marksActive.WithLabelValues(label).Inc()
		}
		return
	}
	if was {
		delete(c.active, k)
		c.marksActive.WithLabelValues(label).Dec()
	}
}

// ValueChanged implements activity.ValueHandler
func (c *Collector) ValueChanged(register string, value int64) {
	c.valueChanges.WithLabelValues(register).Inc()
}

// MarksTotal returns the marks counter of kind
func (c *Collector) MarksTotal(kind activity.EventKind) prometheus.Counter {
	return c.marksTotal.WithLabelValues(kind.String())
}

// MarksActive returns the active marks gauge of kind
func (c *Collector) MarksActive(kind activity.EventKind) prometheus.Gauge {
	return c.marksActive.WithLabelValues(kind.String())
}

// ValueChanges returns the value change counter of a register
func (c *Collector) ValueChanges(register string) prometheus.Counter {
	return c.valueChanges.WithLabelValues(register)
}
