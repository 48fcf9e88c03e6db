package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_registrations_total",
			Help: "Student registrations by outcome",
		},
		[]string{"outcome"},
	)

	MarksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Attendance marks by outcome",
		},
		[]string{"outcome"},
	)
)
