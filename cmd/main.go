package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/liar-service/config"
	"github.com/cwrk-planet/liar-service/internal/audit"
	"github.com/cwrk-planet/liar-service/internal/broadcast"
	"github.com/cwrk-planet/liar-service/internal/cache"
	"github.com/cwrk-planet/liar-service/internal/memstore"
	"github.com/cwrk-planet/liar-service/internal/postgres"
	"github.com/cwrk-planet/liar-service/internal/postgres/migrations"
	"github.com/cwrk-planet/liar-service/internal/repository"
	"github.com/cwrk-planet/liar-service/internal/service"
	grpcx "github.com/cwrk-planet/liar-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/liar-service/internal/transport/http"
	"github.com/cwrk-planet/liar-service/internal/transport/ws"
	"github.com/cwrk-planet/liar-service/pkg/logger"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.ParseBackend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
		NoColor:   cfg.Logging.NoColor,
	})
	slog.Info("starting liar-service",
		slog.String("env", cfg.Logging.Env),
		slog.String("version", cfg.Logging.Version),
		slog.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- storage ---
	var (
		store     repository.Store
		auditRepo repository.AuditRepository
		ready     func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		db := memstore.New()
		db.SeedThemes(memstore.DefaultThemes...)
		store, auditRepo = db.Store(), db.Audit()
	default:
		if cfg.Postgres.Migrate {
			if err := migrations.Up(cfg.Postgres.DSN); err != nil {
				log.Fatalf("migrations: %v", err)
			}
		}
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		store, auditRepo = postgres.NewStore(pool), postgres.NewAuditRepo(pool)
		ready = func(ctx context.Context) error { return postgres.Ping(ctx, pool) }
	}

	// --- audit ---
	sinks := audit.Multi{audit.NewRepoSink(auditRepo)}
	if cfg.AMQP.URL != "" {
		mq, err := audit.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer func() { _ = mq.Close() }()
		sinks = append(sinks, mq)
	}
	auditQ := audit.NewAsync(sinks, cfg.Game.AuditBuffer)

	// --- redis: кэш снимков и pub/sub событий ---
	var (
		mirrors    []broadcast.Mirror
		stateCache service.StateCache
		watcher    grpcx.Watcher
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()

		pub := cache.NewPublisher(rdb)
		mirrors = append(mirrors, pub)
		stateCache = cache.NewRoomStateCache(rdb, cfg.Redis.TTL())
		watcher = pub
	}

	// --- game service ---
	hub := ws.NewHub()
	gameSvc := service.NewGameService(service.Deps{
		Store:       store,
		Broadcaster: broadcast.NewFanout(hub, mirrors...),
		Cache:       stateCache,
		Audit:       auditQ,
	}, service.Options{
		GraceWindow:     cfg.Game.Grace(),
		TransitionDelay: cfg.Game.TransitionDelay(),
		MaxTextLen:      cfg.Game.MaxTextLen,
	})

	// --- WS + HTTP ---
	wsServer := ws.NewServer(hub, gameSvc, ws.Options{
		RateLimit:  cfg.Game.WSRateLimit,
		Burst:      cfg.Game.WSBurst,
		SendBuffer: cfg.Game.WSSendBuffer,
	})
	router := httpx.NewRouter(httpx.NewHandler(gameSvc), wsServer, httpx.RouterOptions{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Ready:       ready,
	})
	readTimeout, writeTimeout, idleTimeout := cfg.HTTP.Timeouts()
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// --- gRPC ---
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(10*time.Second)),
		grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor()),
	)
	grpcx.Register(grpcServer, grpcx.NewServer(gameSvc, watcher), grpcx.NewHealth(ctx, ready, 10*time.Second))

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", slog.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		slog.Info("grpc listen", slog.String("addr", cfg.GRPC.Addr))
		return grpcServer.Serve(lis)
	})

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		if err := httpSrv.Shutdown(ctxShutdown); err != nil {
			slog.Warn("http shutdown", logger.Err(err))
		}
		gameSvc.Close()
		if err := auditQ.Close(ctxShutdown); err != nil {
			slog.Warn("audit drain", logger.Err(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", logger.Err(err))
	}
	slog.Info("stopped")
}
