// Command loadtest exercises a running chargeline HTTP API: it measures the
// latency of sequential charges and checks that simultaneous charges never
// authorize more than the balance allows.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"chargeline/internal/ledger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "chargeline HTTP API base URL")
		redisAddr = flag.String("redis", "localhost:6379", "redis address used to verify the final balance")
		account   = flag.String("account", "account", "account to charge")
		requests  = flag.Int("requests", 10, "simultaneous charge requests")
		amount    = flag.Int64("amount", 20, "amount per simultaneous charge")
		balance   = flag.Int64("balance", 100, "balance the service resets accounts to")
	)
	flag.Parse()

	if err := validateFlags(*requests, *amount, *balance); err != nil {
		fmt.Fprintln(os.Stderr, "loadtest:", err)
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ctx := context.Background()

	if err := basicLatency(ctx, client, *baseURL, *account); err != nil {
		slog.Error("latency test failed", "error", err)
		os.Exit(1)
	}
	if err := simultaneousCalls(ctx, client, *baseURL, *redisAddr, *account, *requests, *amount, *balance); err != nil {
		slog.Error("simultaneous call test failed", "error", err)
		os.Exit(1)
	}
	slog.Info("all checks passed")
}

func validateFlags(requests int, amount, balance int64) error {
	switch {
	case requests <= 0:
		return fmt.Errorf("-requests must be positive, got %d", requests)
	case amount <= 0:
		return fmt.Errorf("-amount must be positive, got %d", amount)
	case balance < 0:
		return fmt.Errorf("-balance must not be negative, got %d", balance)
	}
	return nil
}

func basicLatency(ctx context.Context, client *http.Client, baseURL, account string) error {
	if err := reset(ctx, client, baseURL, account); err != nil {
		return err
	}
	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := charge(ctx, client, baseURL, account, nil); err != nil {
			return err
		}
	}
	slog.Info("sequential charges", "count", 5, "latency", time.Since(start))
	return nil
}

func simultaneousCalls(ctx context.Context, client *http.Client, baseURL, redisAddr, account string, requests int, amount, balance int64) error {
	if err := reset(ctx, client, baseURL, account); err != nil {
		return err
	}

	var authorized atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < requests; i++ {
		g.Go(func() error {
			res, err := charge(gctx, client, baseURL, account, &amount)
			if err != nil {
				return err
			}
			if res.IsAuthorized {
				authorized.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("simultaneous charges", "count", requests, "latency", time.Since(start))

	want := min(int64(requests), balance/amount)
	if got := authorized.Load(); got != want {
		return fmt.Errorf("authorized %d charges, expected %d", got, want)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() { _ = rdb.Close() }()

	raw, err := rdb.Get(ctx, account+"/balance").Result()
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	remaining, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", raw, err)
	}
	if wantRemaining := balance - want*amount; remaining != wantRemaining {
		return fmt.Errorf("remaining balance %d, expected %d", remaining, wantRemaining)
	}
	slog.Info("remaining balance verified", "balance", remaining)
	return nil
}

func reset(ctx context.Context, client *http.Client, baseURL, account string) error {
	resp, err := post(ctx, client, baseURL+"/reset", map[string]any{"account": account})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("reset: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func charge(ctx context.Context, client *http.Client, baseURL, account string, amount *int64) (*ledger.ChargeResult, error) {
	body := map[string]any{"account": account}
	if amount != nil {
		body["charges"] = *amount
	}
	resp, err := post(ctx, client, baseURL+"/charge", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("charge: unexpected status %d", resp.StatusCode)
	}
	var res ledger.ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("charge: decode response: %w", err)
	}
	return &res, nil
}

func post(ctx context.Context, client *http.Client, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}
