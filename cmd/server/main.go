package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/terra-tranquil-api/internal/config"
	"github.com/iliyamo/terra-tranquil-api/internal/database"
	"github.com/iliyamo/terra-tranquil-api/internal/handler"
	"github.com/iliyamo/terra-tranquil-api/internal/logger"
	"github.com/iliyamo/terra-tranquil-api/internal/queue"
	"github.com/iliyamo/terra-tranquil-api/internal/repository"
	"github.com/iliyamo/terra-tranquil-api/internal/router"
	"github.com/iliyamo/terra-tranquil-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

// stores groups the per-collection repos chosen by STORE_DRIVER.
type stores struct {
	businesses service.BusinessStore
	visits     service.VisitStore
	impacts    service.ImpactStore
	info       handler.StoreInfo
	close      func() error
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		m := repository.NewMemoryStore()
		return stores{m.Businesses, m.Visits, m.Impacts, m, func() error { return nil }}, nil
	}
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, fmt.Errorf("open mysql: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, fmt.Errorf("migrate: %w", err)
	}
	return stores{
		businesses: repository.NewBusinessRepo(db),
		visits:     repository.NewVisitRepo(db),
		impacts:    repository.NewImpactRepo(db),
		info:       repository.MySQLInfo{DB: db},
		close:      db.Close,
	}, nil
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	dir := service.NewDirectory(st.businesses, log)
	if cfg.SeedOnStart {
		if _, err := dir.Seed(ctx); err != nil {
			log.Warn("seeding sample businesses failed", "error", err)
		}
	}

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer func() { _ = pub.Close() }()
		events = pub
	} else {
		log.Info("RABBITMQ_URL not set; visit events disabled")
	}
	impact := service.NewImpactService(st.businesses, st.visits, st.impacts, events, log, cfg.LevelAttempts)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := router.New(router.Deps{
		Directory: dir,
		Impact:    impact,
		Store:     st.info,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Log:       log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutCtx)
	})
	if cfg.ConsumeEvents && cfg.AMQPURL != "" {
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Handler: queue.LogActivity(log), Log: log.With("component", "visit-consumer")}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
