package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the booking pipeline.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	bookingLatency   *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthdesk",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthdesk",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Total appointment status transitions",
		}, []string{"from", "to", "outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthdesk",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of booking pipeline runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.bookingLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, outcome).Inc()
}

// ReportingMetrics tracks report generation runs.
type ReportingMetrics struct {
	reportsTotal  *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec
}

func NewReportingMetrics(reg prometheus.Registerer) *ReportingMetrics {
	m := &ReportingMetrics{
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthdesk",
			Subsystem: "reporting",
			Name:      "reports_total",
			Help:      "Total report generations by scope and outcome",
		}, []string{"scope", "outcome"}),
		reportLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthdesk",
			Subsystem: "reporting",
			Name:      "report_latency_seconds",
			Help:      "Latency of report generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reportsTotal, m.reportLatency)
	return m
}

func (m *ReportingMetrics) ObserveReport(scope, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(scope, outcome).Inc()
	m.reportLatency.WithLabelValues(scope).Observe(seconds)
}

// ReminderMetrics tracks reminder dispatch runs.
type ReminderMetrics struct {
	remindersTotal *prometheus.CounterVec
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthdesk",
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Total reminder dispatch attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remindersTotal)
	return m
}

func (m *ReminderMetrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(outcome).Inc()
}
