// Package metrics exports live per-flow controller state as Prometheus
// metrics, following the teacher's Describe/Collect collector pattern
// (pkg/exporter.TCPInfoCollector) but over ledbat's own flow state
// instead of raw TCP_INFO.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runZeroInc/ledbat/internal/flowstate"
)

// Sample is a lightweight snapshot a tracked flow hands the collector
// on each Collect call; the caller decides how expensive it is to
// produce (e.g. the shadow package's Host wraps a live socket).
type Sample struct {
	Labels []string
	State  *flowstate.State
	Err    error
}

// Collector implements prometheus.Collector over a registry of
// tracked flows, each identified by its label values.
type Collector struct {
	mu     sync.Mutex
	flows  map[string]func() Sample
	logger func(error)

	cwnd         *prometheus.Desc
	cwndCnt      *prometheus.Desc
	currentDelay *prometheus.Desc
	baseDelay    *prometheus.Desc
	queuingDelay *prometheus.Desc
}

// NewCollector builds a Collector whose metrics carry labelNames as
// their variable labels (values supplied per flow via Track) plus
// constLabels shared by the whole process. errorLoggingCallback
// receives any error encountered reading a tracked flow's sample
// during Collect, mirroring the teacher's injected-callback logging
// convention rather than importing a logger directly into this
// package.
func NewCollector(prefix string, labelNames []string, constLabels prometheus.Labels, errorLoggingCallback func(error)) *Collector {
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prefix+"_"+name, help, labelNames, constLabels)
	}
	return &Collector{
		flows:        make(map[string]func() Sample),
		logger:       errorLoggingCallback,
		cwnd:         mk("cwnd", "Current congestion window, in segments."),
		cwndCnt:      mk("cwnd_cnt", "Fractional congestion-window accumulator."),
		currentDelay: mk("current_delay", "Noise-filtered current one-way-delay estimate."),
		baseDelay:    mk("base_delay", "Long-horizon base one-way-delay estimate."),
		queuingDelay: mk("queuing_delay", "current_delay minus base_delay."),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.cwnd
	descs <- c.cwndCnt
	descs <- c.currentDelay
	descs <- c.baseDelay
	descs <- c.queuingDelay
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	snapshotters := make([]func() Sample, 0, len(c.flows))
	for _, fn := range c.flows {
		snapshotters = append(snapshotters, fn)
	}
	c.mu.Unlock()

	for _, fn := range snapshotters {
		s := fn()
		if s.Err != nil {
			c.logger(s.Err)
			continue
		}
		if s.State == nil {
			continue
		}
		current := s.State.CurrentDelay()
		base := s.State.BaseDelay()

		metrics <- prometheus.MustNewConstMetric(c.cwnd, prometheus.GaugeValue, float64(s.State.Window.Cwnd), s.Labels...)
		metrics <- prometheus.MustNewConstMetric(c.cwndCnt, prometheus.GaugeValue, float64(s.State.Window.CwndCnt), s.Labels...)
		metrics <- prometheus.MustNewConstMetric(c.currentDelay, prometheus.GaugeValue, float64(current), s.Labels...)
		metrics <- prometheus.MustNewConstMetric(c.baseDelay, prometheus.GaugeValue, float64(base), s.Labels...)
		metrics <- prometheus.MustNewConstMetric(c.queuingDelay, prometheus.GaugeValue, float64(int64(current)-int64(base)), s.Labels...)
	}
}

// Track registers a flow under key, calling snapshot on each Collect.
// snapshot must be safe to call from the Collect goroutine, which may
// differ from the flow's own serializing goroutine; implementations
// typically guard the underlying flowstate.State with the same lock
// the host uses for its other per-flow operations.
func (c *Collector) Track(key string, snapshot func() Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows[key] = snapshot
}

// Untrack removes a flow, typically on connection close.
func (c *Collector) Untrack(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flows, key)
}
