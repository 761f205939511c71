package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"provider", "trade_type", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	StrategiesEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_strategies_evaluated",
		Help:    "Number of strategies evaluated per quote request",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	// Balance cache metrics
	BalanceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_balance_cache_hits_total",
		Help: "Total number of balance cache hits",
	})

	BalanceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_balance_cache_misses_total",
		Help: "Total number of balance cache misses",
	})

	BalanceBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_balance_batch_size",
		Help:    "Number of calls per coalesced balance multicall",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	})

	// Order book metrics
	OrderBookFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_order_book_fetches_total",
			Help: "Total number of order book snapshot fetches",
		},
		[]string{"venue", "status"},
	)

	OrderBookLevelsConsumed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_order_book_levels_consumed",
		Help:    "Depth levels consumed per simulated market order",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	SimulatedSlippage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_simulated_slippage_bps",
		Help:    "Simulated market order slippage in basis points",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 300, 1000},
	})

	// Price metrics
	PriceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_price_lookups_total",
			Help: "Total number of USD price lookups",
		},
		[]string{"source", "status"},
	)

	FeeReconciliationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_fee_reconciliation_fallbacks_total",
		Help: "Times the fee engine degraded to unavailable fees after price divergence",
	})

	// Sponsorship metrics
	SponsorshipChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_sponsorship_checks_total",
			Help: "Total number of sponsorship eligibility checks",
		},
		[]string{"outcome"},
	)

	DonationReserveBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_donation_reserve_balance",
		Help: "Last observed donation reserve balance in base units",
	})

	// Transaction build metrics
	BuildRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_build_requests_total",
			Help: "Total number of transaction build requests",
		},
		[]string{"provider", "status"},
	)

	DestinationGasEstimates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_destination_gas_estimate",
			Help:    "Simulated destination call gas by chain",
			Buckets: []float64{50_000, 100_000, 250_000, 500_000, 1_000_000, 2_000_000, 4_000_000},
		},
		[]string{"chain"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
