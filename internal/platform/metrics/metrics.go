package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	seatOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_seat_operations_total",
			Help: "Join/leave outcomes on the seat ledger",
		},
		[]string{"operation", "status"},
	)

	confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_confirmations_total",
			Help: "Confirmation attempts by role and phase",
		},
		[]string{"role", "phase", "status"},
	)

	tripTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_trip_transitions_total",
			Help: "Trip lifecycle transitions by target status",
		},
		[]string{"to"},
	)

	positionReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_position_reports_total",
			Help: "Position report outcomes",
		},
		[]string{"status"},
	)

	positionReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_position_reads_total",
			Help: "Access-gateway position read outcomes",
		},
		[]string{"status"},
	)

	cascadeDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carpool_position_cascade_deletes_total",
			Help: "Position records removed by completion cascades",
		},
	)
)

func SeatOperation(op, status string) { seatOperations.WithLabelValues(op, status).Inc() }

func Confirmation(role, phase, status string) {
	confirmations.WithLabelValues(role, phase, status).Inc()
}

func TripTransition(to string) { tripTransitions.WithLabelValues(to).Inc() }

func PositionReport(status string) { positionReports.WithLabelValues(status).Inc() }

func PositionRead(status string) { positionReads.WithLabelValues(status).Inc() }

func CascadeDeleted(n int) { cascadeDeletes.Add(float64(n)) }
