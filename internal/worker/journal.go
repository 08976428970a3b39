package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chargeline/internal/model"

	"github.com/nats-io/nats.go"
)

const journalQueueGroup = "journal_group"

// Appender stores a charge event in the journal.
type Appender interface {
	Append(ctx context.Context, event model.ChargeEvent) error
}

// JournalWorker listens on the "charges.>" topics and appends every charge
// decision to the journal. With the gRPC bus it is fed through Record
// instead of a subscription.
type JournalWorker struct {
	journal  Appender
	natsConn *nats.Conn
}

func NewJournalWorker(journal Appender, nc *nats.Conn) *JournalWorker {
	return &JournalWorker{
		journal:  journal,
		natsConn: nc,
	}
}

// Record appends a single event.
func (w *JournalWorker) Record(ctx context.Context, event model.ChargeEvent) error {
	if err := w.journal.Append(ctx, event); err != nil {
		return fmt.Errorf("worker: append charge event: %w", err)
	}
	slog.Info("worker: charge event journaled",
		"account", event.Account,
		"amount", event.Amount,
		"authorized", event.Authorized,
	)
	return nil
}

func (w *JournalWorker) handleMessage(ctx context.Context, subject string, data []byte) {
	var event model.ChargeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("worker: failed to unmarshal nats message", "subject", subject, "error", err)
		return
	}
	if err := w.Record(ctx, event); err != nil {
		slog.Error("worker: failed to journal charge event",
			"subject", subject,
			"account", event.Account,
			"error", err,
		)
	}
}

// Run subscribes to the charge topics and blocks until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context) error {
	// QueueSubscribe: every event is journaled by exactly one worker in the group.
	sub, err := w.natsConn.QueueSubscribe(model.TopicCharges, journalQueueGroup, func(m *nats.Msg) {
		w.handleMessage(ctx, m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Journal worker is running")

	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	return sub.Drain()
}

// Start implements the infrastructure.Server interface.
func (w *JournalWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *JournalWorker) Stop(ctx context.Context) error {
	return nil
}
