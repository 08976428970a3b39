package repository

import (
	"context"
	"errors"
	"fmt"

	"chargeline/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrInvalidEvent = errors.New("invalid charge event")

// execer is the part of *pgxpool.Pool the journal needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal is an append-only audit trail of charge decisions. It is never read
// back into balances: Redis stays the only owner of those.
type Journal struct {
	db execer
}

func NewJournal(db execer) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Append(ctx context.Context, event model.ChargeEvent) error {
	if event.Account == "" || event.Amount < 0 || event.CreatedAt.IsZero() {
		return fmt.Errorf("%w: %+v", ErrInvalidEvent, event)
	}

	query := `
		INSERT INTO charge_events (account, amount, authorized, remaining_balance, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := j.db.Exec(ctx, query,
		event.Account,
		event.Amount,
		event.Authorized,
		event.RemainingBalance,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert charge event: %w", err)
	}
	return nil
}
