package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpgmem/ffcertificate-sub002/internal/adapters/audit"
	httpHandlers "github.com/rpgmem/ffcertificate-sub002/internal/adapters/http/handlers"
	httpMiddleware "github.com/rpgmem/ffcertificate-sub002/internal/adapters/http/middleware"
	"github.com/rpgmem/ffcertificate-sub002/internal/adapters/storage/memory"
	pgstorage "github.com/rpgmem/ffcertificate-sub002/internal/adapters/storage/postgres"
	redisstorage "github.com/rpgmem/ffcertificate-sub002/internal/adapters/storage/redis"
	"github.com/rpgmem/ffcertificate-sub002/internal/config"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeFn, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer closeFn()

	persistence, err := initPersistence(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	defer persistence.close()

	settings, err := config.NewSettingsStore(cfg.RateLimit)
	if err != nil {
		log.Fatalf("invalid rate limit settings: %v", err)
	}
	go reloadOnSIGHUP(ctx, settings)

	// Eventos degradados vão só para o log amostrado: o banco pode estar
	// fora junto com o contador. Decisões vão também para o Postgres.
	logSink := audit.NewLogSink(log.Default(), cfg.Audit.DegradedEvery)
	decisionSink := audit.Multi{logSink}
	if persistence.audit != nil {
		decisionSink = append(decisionSink, persistence.audit)
		go purgeAuditEvents(ctx, persistence.audit, settings)
	}

	limiter, err := services.NewRateLimiterService(storage, services.Config{
		Settings:     settings,
		History:      persistence.history,
		Audit:        logSink,
		HashSalt:     []byte(cfg.Audit.HashSalt),
		StoreTimeout: cfg.Storage.OpTimeout,
	})
	if err != nil {
		log.Fatalf("failed to create limiter: %v", err)
	}

	challenge, err := services.NewChallengeService(cfg.Challenge.Salt)
	if err != nil {
		log.Fatalf("failed to create challenge service: %v", err)
	}

	gate, err := services.NewGatekeeper(challenge, limiter, persistence.forms)
	if err != nil {
		log.Fatalf("failed to create gatekeeper: %v", err)
	}

	handler := &httpHandlers.GateHandler{
		Gate:         gate,
		Tickets:      persistence.tickets,
		Certificates: persistence.certificates,
		Settings:     settings,
		Audit:        decisionSink,
	}

	r := chi.NewRouter()
	if cfg.Server.TrustForwardedFor {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	if cfg.Server.AuthUserHeader != "" {
		r.Use(httpMiddleware.AuthenticatedUser(cfg.Server.AuthUserHeader))
	}
	r.Get("/healthz", httpHandlers.Health)
	r.Get("/challenge", handler.Challenge)
	r.Post("/forms/{formID}/submissions", handler.Submit)
	r.With(httpMiddleware.NewVerificationLimitMiddleware(limiter)).Get("/verify/{code}", handler.Verify)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("gatekeeper listening on %s", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func initStorage(ctx context.Context, cfg config.StorageConfig) (ports.CounterStore, func(), error) {
	switch cfg.Type {
	case "redis":
		redisCfg := redisstorage.Config{
			Addr:      fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			OpTimeout: cfg.OpTimeout,
		}
		storage, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				log.Printf("failed to close redis storage: %v", err)
			}
		}, nil
	case "memory":
		storage := memory.NewStorage()
		storage.StartJanitor(ctx, time.Minute)
		return storage, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

type persistence struct {
	history      ports.HistoricalCounter
	forms        ports.FormConfigProvider
	tickets      ports.TicketConsumer
	certificates ports.CertificateLookup
	audit        *pgstorage.AuditWriter
	close        func()
}

// initPersistence usa Postgres quando DATABASE_URL existe; caso contrário, memória.
func initPersistence(ctx context.Context, cfg config.DatabaseConfig) (persistence, error) {
	if cfg.URL == "" {
		log.Println("DATABASE_URL not set; forms are unrestricted and there is no submission history")
		forms := memory.NewForms()
		return persistence{
			forms:        forms,
			tickets:      forms,
			certificates: noCertificates{},
			close:        func() {},
		}, nil
	}

	pool, err := pgstorage.NewPool(ctx, cfg.URL)
	if err != nil {
		return persistence{}, err
	}
	if err := pgstorage.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return persistence{}, err
	}
	forms := &pgstorage.Forms{DB: pool}
	return persistence{
		history:      &pgstorage.History{DB: pool},
		forms:        forms,
		tickets:      forms,
		certificates: &pgstorage.Certificates{DB: pool},
		audit:        &pgstorage.AuditWriter{DB: pool},
		close:        closePool(pool),
	}, nil
}

func closePool(pool *pgxpool.Pool) func() {
	return func() { pool.Close() }
}

func reloadOnSIGHUP(ctx context.Context, store *config.SettingsStore) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			settings, err := config.LoadRateLimitSettings()
			if err != nil {
				log.Printf("settings reload rejected: %v", err)
				continue
			}
			if err := store.Replace(settings); err != nil {
				log.Printf("settings reload rejected: %v", err)
				continue
			}
			log.Println("rate limit settings reloaded")
		}
	}
}

func purgeAuditEvents(ctx context.Context, writer *pgstorage.AuditWriter, settings ports.SettingsProvider) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			logging := settings.RateLimitSettings(ctx).Logging
			if logging == nil {
				continue
			}
			if _, err := writer.Purge(ctx, logging.RetentionDays, time.Now().UTC()); err != nil {
				log.Printf("audit purge failed: %v", err)
			}
		}
	}
}
