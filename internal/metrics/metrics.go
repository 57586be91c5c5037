package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	admissionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techgym",
			Name:      "admission_total",
			Help:      "Count of booking admission attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "techgym",
			Name:      "booking_deleted_total",
			Help:      "Count of bookings removed.",
		},
	)

	holidayMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techgym",
			Name:      "holiday_mutations_total",
			Help:      "Count of holiday calendar mutations by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techgym",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(admissionTotal, bookingDeleted, holidayMutations, httpRequests)
	})
}

func IncAdmission(outcome string) {
	admissionTotal.WithLabelValues(outcome).Inc()
}

func IncBookingDeleted() {
	bookingDeleted.Inc()
}

func IncHolidayMutation(op string) {
	holidayMutations.WithLabelValues(op).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
