package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	BatchesRejected     prometheus.Counter
	BatchSize           prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_certificates_issued_total",
			Help: "Total number of certificates issued, batch entries included",
		}),
		CertificatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_certificates_revoked_total",
			Help: "Total number of certificates revoked",
		}),
		BatchesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_certificate_batches_rejected_total",
			Help: "Total number of batch issuance requests aborted without side effects",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_certificate_batch_size",
			Help:    "Entry count of accepted issuance batches",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}
