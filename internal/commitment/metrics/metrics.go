package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CommitmentsRegistered prometheus.Counter
	ProofsRejected        prometheus.Counter
	Logins                prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CommitmentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_commitments_registered_total",
			Help: "Total number of role-bound commitments registered",
		}),
		ProofsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_proofs_rejected_total",
			Help: "Total number of proofs the verifier declined, registration and login combined",
		}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_logins_total",
			Help: "Total number of successful commitment authentications",
		}),
	}
}
