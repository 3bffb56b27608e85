package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_mutations_total",
		Help: "Classroom and account mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_auth_failures_total",
		Help: "Failed register/login attempts by reason.",
	}, []string{"reason"})
)

func recordMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(op, outcome).Inc()
}
