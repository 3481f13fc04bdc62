// Package metrics exposes the Prometheus collectors the /metrics endpoint
// serves: ticket issuance/validation/consumption counters broken out by
// ticket kind, and a histogram for proxy-callback latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsIssued counts tickets minted by the factory, labeled by kind
	// (ST, PT, PGT, TGT).
	TicketsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cas",
		Name:      "tickets_issued_total",
		Help:      "Total number of tickets issued, by kind.",
	}, []string{"kind"})

	// ValidationsTotal counts ticket validation attempts. The "endpoint"
	// label is "serviceValidate" for an ST validation and "proxyValidate"
	// for a PT validation, whichever HTTP endpoint received the request (so
	// /validate counts under "serviceValidate"). The "outcome" label is
	// "success", "invalid_request", "invalid_service" or "invalid_ticket".
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cas",
		Name:      "validations_total",
		Help:      "Total number of ticket validation attempts, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// TicketsConsumed counts successful single-use ticket consumptions, by
	// kind. Compared against TicketsIssued this approximates the fraction
	// of issued tickets that are ever redeemed.
	TicketsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cas",
		Name:      "tickets_consumed_total",
		Help:      "Total number of tickets successfully consumed, by kind.",
	}, []string{"kind"})

	// ProxyCallbackDuration measures the latency of the outbound pgtUrl
	// handshake, labeled by whether it ultimately succeeded.
	ProxyCallbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cas",
		Name:      "proxy_callback_duration_seconds",
		Help:      "Duration of the outbound pgtUrl proxy callback handshake.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
)
