package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "dispatchd_build_info",
			Help:        "Build information for the dispatchd server",
			ConstLabels: prometheus.Labels{"component": "server"},
		},
		[]string{"date", "sha", "version"},
	)

	assignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatchd_assignments_total",
			Help: "Total number of assignment decisions by outcome",
		},
		[]string{"outcome"},
	)

	reservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatchd_reservation_conflicts_total",
			Help: "Total number of reservations lost to a concurrent assignment",
		},
	)

	operatorInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatchd_operator_inflight",
			Help: "Number of in-flight requests reserved per operator",
		},
		[]string{"operator"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatchd_requests_total",
			Help: "Total number of requests accepted by status transitions",
		},
		[]string{"status"},
	)
)

// Register registers all dispatchd collectors with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, assignmentsTotal, reservationConflicts, operatorInflight, requestsTotal)
}

// SetBuildInfo sets the build info metric for the server.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordAssignment counts one assignment decision.
func RecordAssignment(assigned bool) {
	outcome := "assigned"
	if !assigned {
		outcome = "unassigned"
	}
	assignmentsTotal.WithLabelValues(outcome).Inc()
}

// ReservationConflict counts a reservation lost to a concurrent caller.
func ReservationConflict() { reservationConflicts.Inc() }

// OperatorReserved increments the in-flight gauge for an operator.
func OperatorReserved(id string) { operatorInflight.WithLabelValues(id).Inc() }

// OperatorReleased decrements the in-flight gauge for an operator.
func OperatorReleased(id string) { operatorInflight.WithLabelValues(id).Dec() }

// RecordRequest counts a request entering the given status.
func RecordRequest(status string) { requestsTotal.WithLabelValues(status).Inc() }
