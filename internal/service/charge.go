package service

import (
	"context"

	"chargeline/internal/ledger"
	"chargeline/internal/model"
)

// ChargeService defines the business operations of the charging service.
// All transport layers (HTTP, gRPC, NATS) depend on this interface, not on the engine.
type ChargeService interface {
	Reset(ctx context.Context, req model.ResetRequest) error
	Charge(ctx context.Context, req model.ChargeRequest) (*ledger.ChargeResult, error)
}

// Engine is the atomic store protocol the service delegates to.
type Engine interface {
	Reset(ctx context.Context, account string) error
	Charge(ctx context.Context, account string, amount int64) (ledger.ChargeResult, error)
}
