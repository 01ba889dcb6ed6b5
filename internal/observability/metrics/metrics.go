package metrics

import "github.com/prometheus/client_golang/prometheus"

// MonitorMetrics exposes counters/gauges for the polling loops and the
// authentication path.
type MonitorMetrics struct {
	pollsTotal         *prometheus.CounterVec
	slotsReportedTotal prometheus.Counter
	activeMonitorings  prometheus.Gauge
	monitoringsTotal   *prometheus.CounterVec
}

func NewMonitorMetrics(reg prometheus.Registerer) *MonitorMetrics {
	m := &MonitorMetrics{
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "monitor",
			Name:      "polls_total",
			Help:      "Total slot search polls by result",
		}, []string{"result"}),
		slotsReportedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "monitor",
			Name:      "slots_reported_total",
			Help:      "Total slots reported to subscribers",
		}),
		activeMonitorings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotwatch",
			Subsystem: "monitor",
			Name:      "active_monitorings",
			Help:      "Monitoring subscriptions currently polling",
		}),
		monitoringsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotwatch",
			Subsystem: "monitor",
			Name:      "monitorings_total",
			Help:      "Terminated monitoring subscriptions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.pollsTotal, m.slotsReportedTotal, m.activeMonitorings, m.monitoringsTotal)
	return m
}

// ObservePoll records one poll cycle. result is empty, found or error.
func (m *MonitorMetrics) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(result).Inc()
}

func (m *MonitorMetrics) ObserveSlotsReported(n int) {
	if m == nil {
		return
	}
	m.slotsReportedTotal.Add(float64(n))
}

func (m *MonitorMetrics) MonitoringStarted() {
	if m == nil {
		return
	}
	m.activeMonitorings.Inc()
}

// MonitoringEnded records the terminal outcome: found, cancelled or failed.
func (m *MonitorMetrics) MonitoringEnded(outcome string) {
	if m == nil {
		return
	}
	m.activeMonitorings.Dec()
	m.monitoringsTotal.WithLabelValues(outcome).Inc()
}
