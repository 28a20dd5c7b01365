package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveBooking("accepted", 0.05)
	m.ObserveBooking("conflict", 0.01)
	m.ObserveTransition("pending", "confirmed", "ok")
}

func TestReportingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReportingMetrics(reg)
	m.ObserveReport("doctor", "ok", 0.2)
	m.ObserveReport("system", "error", 0.1)
}

func TestReminderMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReminderMetrics(reg)
	m.ObserveDispatch("sent")
	m.ObserveDispatch("failed")
}

func TestMetricsNilSafe(t *testing.T) {
	var sm *SchedulingMetrics
	sm.ObserveBooking("accepted", 0.1)
	sm.ObserveTransition("pending", "cancelled", "ok")

	var rm *ReportingMetrics
	rm.ObserveReport("doctor", "ok", 0.1)

	var dm *ReminderMetrics
	dm.ObserveDispatch("sent")
}
