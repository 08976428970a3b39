package service

import (
	"errors"

	"chargeline/internal/ledger"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK               = "ok"
	outcomeAuthorized       = "authorized"
	outcomeDenied           = "denied"
	outcomeInvalidArgument  = "invalid_argument"
	outcomeStoreUnavailable = "store_unavailable"
	outcomeProtocolError    = "protocol_error"
)

type Metrics struct {
	Requests     *prometheus.CounterVec
	ChargedUnits prometheus.Counter
	Duration     *prometheus.HistogramVec
}

// NewMetrics creates the service collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chargeline",
				Name:      "requests_total",
				Help:      "Reset and charge requests by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		ChargedUnits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chargeline",
				Name:      "charged_units_total",
				Help:      "Units debited by authorized charges.",
			},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chargeline",
				Name:      "store_round_trip_seconds",
				Help:      "Latency of the store round trip per operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.ChargedUnits, m.Duration)
	}
	return m
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ledger.ErrInvalidArgument):
		return outcomeInvalidArgument
	case errors.Is(err, ledger.ErrProtocol):
		return outcomeProtocolError
	default:
		return outcomeStoreUnavailable
	}
}
