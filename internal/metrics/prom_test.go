package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	SetBuildInfo("1.0.0", "abc", "2024-01-01")
	RecordAssignment(true)
	RecordAssignment(false)
	ReservationConflict()
	OperatorReserved("op1")
	OperatorReserved("op1")
	OperatorReleased("op1")
	RecordRequest("active")

	if v := testutil.ToFloat64(assignmentsTotal.WithLabelValues("assigned")); v != 1 {
		t.Fatalf("assigned: %v", v)
	}
	if v := testutil.ToFloat64(assignmentsTotal.WithLabelValues("unassigned")); v != 1 {
		t.Fatalf("unassigned: %v", v)
	}
	if v := testutil.ToFloat64(reservationConflicts); v != 1 {
		t.Fatalf("conflicts: %v", v)
	}
	if v := testutil.ToFloat64(operatorInflight.WithLabelValues("op1")); v != 1 {
		t.Fatalf("inflight: %v", v)
	}
	if v := testutil.ToFloat64(requestsTotal.WithLabelValues("active")); v != 1 {
		t.Fatalf("requests: %v", v)
	}
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("2024-01-01", "abc", "1.0.0")); v != 1 {
		t.Fatalf("build info: %v", v)
	}
}
