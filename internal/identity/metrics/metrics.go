package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InstitutionsRegistered prometheus.Counter
	InstitutionsApproved   prometheus.Counter
	InstitutionsSuspended  prometheus.Counter
	EmployersRegistered    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		InstitutionsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_institutions_registered_total",
			Help: "Total number of institution registrations accepted",
		}),
		InstitutionsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_institutions_approved_total",
			Help: "Total number of institution approvals",
		}),
		InstitutionsSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_institutions_suspended_total",
			Help: "Total number of institution suspensions",
		}),
		EmployersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_employers_registered_total",
			Help: "Total number of employer registrations accepted",
		}),
	}
}
