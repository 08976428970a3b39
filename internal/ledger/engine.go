package ledger

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

//go:embed charge.lua
var chargeLuaScript string

// DefaultBalance is the balance an account holds right after Reset.
const DefaultBalance int64 = 100

const (
	statusAuthorized = 1
	statusDenied     = -1
)

// ChargeResult is the authorization decision for a single charge.
type ChargeResult struct {
	IsAuthorized     bool  `json:"isAuthorized"`
	RemainingBalance int64 `json:"remainingBalance"`
	Charges          int64 `json:"charges"`
}

// Engine runs the check-and-decrement protocol against Redis. It holds no
// balances itself: every decision is made by one script execution on the
// server, so an Engine is safe for concurrent use without local locking.
type Engine struct {
	rdb            redis.Cmdable
	script         *redis.Script
	defaultBalance int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultBalance overrides the balance written by Reset.
func WithDefaultBalance(balance int64) Option {
	return func(e *Engine) {
		e.defaultBalance = balance
	}
}

// NewEngine builds an engine on rdb. The script is not loaded until Register
// or the first Charge.
func NewEngine(rdb redis.Cmdable, opts ...Option) *Engine {
	e := &Engine{
		rdb:            rdb,
		script:         redis.NewScript(chargeLuaScript),
		defaultBalance: DefaultBalance,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScriptHash is the content-derived handle the charge script is invoked by.
func (e *Engine) ScriptHash() string {
	return e.script.Hash()
}

// Register loads the charge script into the store's script cache. Loading an
// already cached script is a no-op on the server, so Register may be called
// any number of times.
func (e *Engine) Register(ctx context.Context) error {
	sha, err := e.script.Load(ctx, e.rdb).Result()
	if err != nil {
		return classify(ctx, "register charge script", err)
	}
	if sha != e.script.Hash() {
		return fmt.Errorf("register charge script: %w: handle %s does not match content hash %s",
			ErrProtocol, sha, e.script.Hash())
	}
	return nil
}

// Reset sets the account balance to the default and drops the last operation
// status. It is not ordered against charges that are already in flight.
func (e *Engine) Reset(ctx context.Context, account string) error {
	if account == "" {
		return fmt.Errorf("reset: %w: account is required", ErrInvalidArgument)
	}
	keys := KeysFor(account)
	_, err := e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys.Balance, e.defaultBalance, 0)
		pipe.Del(ctx, keys.Status)
		return nil
	})
	return classify(ctx, "reset", err)
}

// Charge debits amount from the account if, and only if, the balance covers
// it. The check and the debit happen inside a single script execution.
//
// On ErrStoreUnavailable the outcome is unknown: the script may already have
// run on the server.
func (e *Engine) Charge(ctx context.Context, account string, amount int64) (ChargeResult, error) {
	if account == "" {
		return ChargeResult{}, fmt.Errorf("charge: %w: account is required", ErrInvalidArgument)
	}
	if amount < 0 {
		return ChargeResult{}, fmt.Errorf("charge: %w: amount must not be negative, got %d", ErrInvalidArgument, amount)
	}

	keys := KeysFor(account).slice()
	reply, err := e.script.EvalSha(ctx, e.rdb, keys, amount).Slice()
	if isNoScript(err) {
		// The server lost its script cache (restart or SCRIPT FLUSH).
		if err := e.Register(ctx); err != nil {
			return ChargeResult{}, err
		}
		reply, err = e.script.EvalSha(ctx, e.rdb, keys, amount).Slice()
	}
	if err != nil {
		return ChargeResult{}, classify(ctx, "charge", err)
	}

	return interpret(reply, amount)
}

// interpret turns the script's [balance, status] reply into a decision.
func interpret(reply []interface{}, amount int64) (ChargeResult, error) {
	if len(reply) != 2 {
		return ChargeResult{}, fmt.Errorf("charge: %w: expected 2 values, got %d", ErrProtocol, len(reply))
	}

	status, err := toInt64(reply[1])
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge: %w: operation status: %v", ErrProtocol, err)
	}
	if status != statusAuthorized && status != statusDenied {
		if status == 0 && reply[0] == nil {
			return ChargeResult{}, fmt.Errorf("charge: %w: %w", ErrProtocol, ErrAccountNotInitialized)
		}
		return ChargeResult{}, fmt.Errorf("charge: %w: operation status %d for balance %v", ErrProtocol, status, reply[0])
	}

	balance, err := toInt64(reply[0])
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge: %w: balance: %v", ErrProtocol, err)
	}

	if status == statusAuthorized {
		return ChargeResult{IsAuthorized: true, RemainingBalance: balance, Charges: amount}, nil
	}
	return ChargeResult{IsAuthorized: false, RemainingBalance: balance, Charges: 0}, nil
}

func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
