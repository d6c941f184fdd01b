package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Claim issuance metrics
	// ============================================
	AttestationsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_attestations_issued_total",
		Help: "Total number of signed revocation attestations issued",
	})

	VouchersIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_vouchers_issued_total",
		Help: "Total number of signed daily vouchers issued",
	})

	ClaimRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_claim_rejections_total",
			Help: "Total number of rejected claim requests",
		},
		[]string{"reason"},
	)

	// ============================================
	// Revocation recording metrics
	// ============================================
	RevocationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_revocations_recorded_total",
		Help: "Total number of revocation records accepted",
	})

	// ============================================
	// Upstream dependency metrics
	// ============================================
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_upstream_errors_total",
			Help: "Total number of upstream service failures",
		},
		[]string{"service"},
	)

	PriceFeedFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_price_feed_fallbacks_total",
		Help: "Total number of price fetches served from the last-known-good cache after a feed failure",
	})

	// ============================================
	// Relay metrics
	// ============================================
	RelaySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_relay_submissions_total",
			Help: "Total number of backend-submitted claim transactions",
		},
		[]string{"chain", "status"},
	)

	RelayerBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backend_relayer_balance",
			Help: "Relayer address balance in wei",
		},
		[]string{"chain", "address"},
	)
)
