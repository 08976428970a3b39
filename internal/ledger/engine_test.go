package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := NewEngine(rdb, opts...)
	require.NoError(t, e.Register(context.Background()))
	return e, mr, rdb
}

func TestKeysFor(t *testing.T) {
	k := KeysFor("acme")
	assert.Equal(t, "acme/balance", k.Balance)
	assert.Equal(t, "acme/operationStatus", k.Status)
}

func TestCharge_Sequential(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	for _, want := range []int64{90, 80, 70, 60, 50} {
		res, err := e.Charge(ctx, "account", 10)
		require.NoError(t, err)
		assert.Equal(t, ChargeResult{IsAuthorized: true, RemainingBalance: want, Charges: 10}, res)
	}
}

func TestCharge_Denied(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	res, err := e.Charge(ctx, "account", 150)
	require.NoError(t, err)
	assert.Equal(t, ChargeResult{IsAuthorized: false, RemainingBalance: 100, Charges: 0}, res)

	status, err := mr.Get("account/operationStatus")
	require.NoError(t, err)
	assert.Equal(t, "-1", status)
}

func TestCharge_ExactBalanceAndZero(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	res, err := e.Charge(ctx, "account", 100)
	require.NoError(t, err)
	assert.True(t, res.IsAuthorized)
	assert.Equal(t, int64(0), res.RemainingBalance)

	res, err = e.Charge(ctx, "account", 0)
	require.NoError(t, err)
	assert.True(t, res.IsAuthorized)
	assert.Equal(t, int64(0), res.Charges)

	res, err = e.Charge(ctx, "account", 1)
	require.NoError(t, err)
	assert.False(t, res.IsAuthorized)
	assert.Equal(t, int64(0), res.RemainingBalance)
}

func TestCharge_NegativeAmount(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	_, err := e.Charge(ctx, "account", -5)
	require.ErrorIs(t, err, ErrInvalidArgument)

	balance, err := mr.Get("account/balance")
	require.NoError(t, err)
	assert.Equal(t, "100", balance)
	assert.False(t, mr.Exists("account/operationStatus"), "no script should have run")
}

func TestCharge_EmptyAccount(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Charge(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, e.Reset(context.Background(), ""), ErrInvalidArgument)
}

func TestCharge_Concurrent(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	const requests = 10
	results := make([]ChargeResult, requests)
	errs := make([]error, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Charge(ctx, "account", 20)
		}(i)
	}
	wg.Wait()

	authorized := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].IsAuthorized {
			authorized++
		}
	}
	assert.Equal(t, 5, authorized)

	balance, err := mr.Get("account/balance")
	require.NoError(t, err)
	assert.Equal(t, "0", balance)
}

func TestCharge_ConcurrentNeverOverAuthorizes(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))

	const (
		requests = 50
		amount   = 7
	)
	var (
		mu      sync.Mutex
		charged int64
		wg      sync.WaitGroup
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Charge(ctx, "account", amount)
			if !assert.NoError(t, err) {
				return
			}
			assert.GreaterOrEqual(t, res.RemainingBalance, int64(0))
			mu.Lock()
			charged += res.Charges
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(amount*(DefaultBalance/amount)), charged)

	balance, err := mr.Get("account/balance")
	require.NoError(t, err)
	assert.Equal(t, "2", balance)
}

func TestCharge_AccountsAreIndependent(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "alice"))
	require.NoError(t, e.Reset(ctx, "bob"))

	_, err := e.Charge(ctx, "alice", 60)
	require.NoError(t, err)

	res, err := e.Charge(ctx, "bob", 60)
	require.NoError(t, err)
	assert.True(t, res.IsAuthorized)
	assert.Equal(t, int64(40), res.RemainingBalance)
}

func TestReset_Twice(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)

	require.NoError(t, e.Reset(ctx, "account"))
	_, err := e.Charge(ctx, "account", 30)
	require.NoError(t, err)
	require.NoError(t, e.Reset(ctx, "account"))

	balance, err := mr.Get("account/balance")
	require.NoError(t, err)
	assert.Equal(t, "100", balance)
	assert.False(t, mr.Exists("account/operationStatus"))

	require.NoError(t, e.Reset(ctx, "account"))
	res, err := e.Charge(ctx, "account", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(90), res.RemainingBalance)
}

func TestReset_CustomDefault(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, WithDefaultBalance(40))
	require.NoError(t, e.Reset(ctx, "account"))

	res, err := e.Charge(ctx, "account", 50)
	require.NoError(t, err)
	assert.False(t, res.IsAuthorized)
	assert.Equal(t, int64(40), res.RemainingBalance)
}

func TestCharge_UninitializedAccount(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Charge(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, ErrAccountNotInitialized)
}

func TestCharge_CorruptBalance(t *testing.T) {
	e, mr, _ := newTestEngine(t)
	require.NoError(t, mr.Set("broken/balance", "not-a-number"))

	_, err := e.Charge(context.Background(), "broken", 10)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.NotErrorIs(t, err, ErrAccountNotInitialized)
}

func TestRegister_Idempotent(t *testing.T) {
	ctx := context.Background()
	e, _, rdb := newTestEngine(t)

	require.NoError(t, e.Register(ctx))
	require.NoError(t, e.Register(ctx))

	exists, err := rdb.ScriptExists(ctx, e.ScriptHash()).Result()
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, exists)
	assert.Equal(t, e.ScriptHash(), NewEngine(rdb).ScriptHash())
}

func TestCharge_ReloadsFlushedScript(t *testing.T) {
	ctx := context.Background()
	e, _, rdb := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))
	require.NoError(t, rdb.ScriptFlush(ctx).Err())

	res, err := e.Charge(ctx, "account", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(90), res.RemainingBalance)
}

func TestCharge_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	e, mr, _ := newTestEngine(t)
	require.NoError(t, e.Reset(ctx, "account"))
	mr.Close()

	_, err := e.Charge(ctx, "account", 10)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, e.Reset(ctx, "account"), ErrStoreUnavailable)
}

func TestCharge_TimeoutIsNotADenial(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.Reset(context.Background(), "account"))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := e.Charge(ctx, "account", 10)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ChargeResult{}, res)
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name    string
		reply   []interface{}
		want    ChargeResult
		wantErr error
	}{
		{name: "authorized", reply: []interface{}{"80", "1"}, want: ChargeResult{IsAuthorized: true, RemainingBalance: 80, Charges: 20}},
		{name: "denied", reply: []interface{}{"10", "-1"}, want: ChargeResult{RemainingBalance: 10}},
		{name: "integer replies", reply: []interface{}{int64(5), int64(1)}, want: ChargeResult{IsAuthorized: true, RemainingBalance: 5, Charges: 20}},
		{name: "zero status", reply: []interface{}{"10", "0"}, wantErr: ErrProtocol},
		{name: "unknown status", reply: []interface{}{"10", "2"}, wantErr: ErrProtocol},
		{name: "missing status", reply: []interface{}{"10", nil}, wantErr: ErrProtocol},
		{name: "short reply", reply: []interface{}{"10"}, wantErr: ErrProtocol},
		{name: "uninitialized", reply: []interface{}{nil, "0"}, wantErr: ErrAccountNotInitialized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interpret(tt.reply, 20)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
