package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"chargeline/internal/config"
	"chargeline/internal/ledger"
	"chargeline/internal/repository"
	"chargeline/internal/service"
	transportGRPC "chargeline/internal/transport/grpc"
	transportHTTP "chargeline/internal/transport/http"
	transportNATS "chargeline/internal/transport/nats"
	"chargeline/internal/worker"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	SetupLogger(cfg.LogLevel)

	var cleanupFns []func()

	rdb, err := connectRedis(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

	// The charge script is registered once per process; the engine reloads it
	// by itself if the server later loses its script cache.
	engine := ledger.NewEngine(rdb, ledger.WithDefaultBalance(cfg.DefaultBalance))
	if err := engine.Register(ctx); err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	slog.Info("charge script registered", "sha", engine.ScriptHash(), "redis", cfg.RedisAddr())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// ── Infrastructure wiring ──────────────────────────────────────────────────
	var journal *repository.Journal
	if cfg.JournalEnabled {
		db, err := connectPostgres(ctx, cfg.DSN())
		if err != nil {
			return nil, runCleanup(cleanupFns), fmt.Errorf("connect postgres: %w", err)
		}
		cleanupFns = append(cleanupFns, db.Close)
		journal = repository.NewJournal(db)
	}

	var (
		bus     repository.MessageBus
		nc      *nats.Conn
		sink    transportGRPC.EventSink
		servers []Server
	)

	switch cfg.BusProvider {
	case config.BusNats:
		nc, err = connectNats(cfg.NatsAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), fmt.Errorf("connect nats: %w", err)
		}
		cleanupFns = append(cleanupFns, nc.Close)
		bus = transportNATS.NewBus(nc)

		if journal != nil {
			servers = append(servers, worker.NewJournalWorker(journal, nc))
		}

	case config.BusGRPC:
		grpcBus, cleanup, err := transportGRPC.NewGrpcBusFromAddr(cfg.GRPCBusAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), fmt.Errorf("dial grpc bus: %w", err)
		}
		cleanupFns = append(cleanupFns, cleanup)
		bus = grpcBus

		// The gRPC server acts as the journal worker through its EventService.
		if journal != nil {
			sink = worker.NewJournalWorker(journal, nil)
		}
	}

	svc := service.NewCharger(engine,
		service.WithBus(bus),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithTimeout(cfg.StoreTimeout),
	)

	if nc != nil {
		servers = append(servers, transportNATS.NewHandler(svc, nc))
	}
	servers = append(servers, transportGRPC.NewServer(cfg.GRPCAddr(), svc, sink))
	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, transportHTTP.NewServer(addr, svc, reg))
	} else {
		slog.Info("HTTP API not started", "reason", apiErr)
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
