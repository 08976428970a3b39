package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chargeline/internal/ledger"
	"chargeline/internal/model"
	"chargeline/internal/repository"
)

// Charger is the ChargeService backed by the ledger engine. It adds request
// defaults, a bound on the store round trip, logging, metrics and event
// publishing around the engine; the authorization decision itself is never
// made here.
type Charger struct {
	engine  Engine
	bus     repository.MessageBus
	metrics *Metrics
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Charger)

// WithBus publishes a ChargeEvent for every decided charge.
func WithBus(bus repository.MessageBus) Option {
	return func(c *Charger) { c.bus = bus }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Charger) { c.metrics = m }
}

// WithTimeout bounds every store round trip. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Charger) { c.timeout = d }
}

func NewCharger(engine Engine, opts ...Option) *Charger {
	c := &Charger{
		engine:  engine,
		metrics: NewMetrics(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Charger) Reset(ctx context.Context, req model.ResetRequest) error {
	account := req.AccountOrDefault()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.engine.Reset(ctx, account)
	c.metrics.Duration.WithLabelValues("reset").Observe(time.Since(start).Seconds())
	c.metrics.Requests.WithLabelValues("reset", outcomeOf(err)).Inc()

	if err != nil {
		slog.Error("reset failed", "account", account, "error", err)
		return err
	}
	slog.Info("account reset", "account", account)
	return nil
}

func (c *Charger) Charge(ctx context.Context, req model.ChargeRequest) (*ledger.ChargeResult, error) {
	account := req.AccountOrDefault()
	amount := req.ChargesOrDefault()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := c.engine.Charge(ctx, account, amount)
	c.metrics.Duration.WithLabelValues("charge").Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.Requests.WithLabelValues("charge", outcomeOf(err)).Inc()
		slog.Error("charge failed", "account", account, "amount", amount, "error", err)
		return nil, err
	}

	if res.IsAuthorized {
		c.metrics.Requests.WithLabelValues("charge", outcomeAuthorized).Inc()
		c.metrics.ChargedUnits.Add(float64(res.Charges))
	} else {
		c.metrics.Requests.WithLabelValues("charge", outcomeDenied).Inc()
	}
	slog.Info("charge decided",
		"account", account,
		"amount", amount,
		"authorized", res.IsAuthorized,
		"remaining_balance", res.RemainingBalance,
	)

	c.publish(model.ChargeEvent{
		Account:          account,
		Amount:           amount,
		Authorized:       res.IsAuthorized,
		RemainingBalance: res.RemainingBalance,
		CreatedAt:        c.now().UTC(),
	})

	return &res, nil
}

// publish is best effort: the store has already committed the decision, so a
// bus failure must not turn into a failed charge.
func (c *Charger) publish(event model.ChargeEvent) {
	if c.bus == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode charge event", "account", event.Account, "error", err)
		return
	}
	if err := c.bus.Publish(event.Topic(), data); err != nil {
		slog.Warn("failed to publish charge event", "topic", event.Topic(), "account", event.Account, "error", err)
	}
}

func (c *Charger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
