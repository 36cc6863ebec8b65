package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	nxhttp "github.com/Strob0t/nextup/internal/adapter/http"
	nxmcp "github.com/Strob0t/nextup/internal/adapter/mcp"
	nxnats "github.com/Strob0t/nextup/internal/adapter/nats"
	"github.com/Strob0t/nextup/internal/adapter/natskv"
	nxotel "github.com/Strob0t/nextup/internal/adapter/otel"
	"github.com/Strob0t/nextup/internal/adapter/postgres"
	"github.com/Strob0t/nextup/internal/adapter/ristretto"
	"github.com/Strob0t/nextup/internal/adapter/tiered"
	"github.com/Strob0t/nextup/internal/adapter/ws"
	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/logger"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/resilience"
	"github.com/Strob0t/nextup/internal/secrets"
	"github.com/Strob0t/nextup/internal/service"
)

const (
	version = "0.1.0"

	idempotencyBucket = "NEXTUP_IDEMPOTENCY"
	idempotencyTTL    = 24 * time.Hour
	l1Expire          = time.Minute
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth_enabled", cfg.Auth.Enabled,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Telemetry ---

	shutdownOTEL, err := nxotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()
	metrics, err := nxotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := nxnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache l1: %w", err)
	}
	defer l1.Close()
	cacheKV, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("cache l2: %w", err)
	}
	userCache := tiered.New(l1, natskv.New(cacheKV), l1Expire)

	idempotencyKV, err := queue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	breaker := resilience.NewBreaker("events", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	events := service.NewEventPublisher(queue, breaker)

	vault, err := secrets.NewVault(secretLoader(cfg))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Info("secrets loaded", "jwt_secret", vault.Redacted(secrets.JWTSecretKey))

	authSvc := service.NewAuthService(store, &cfg.Auth, userCache)
	authSvc.SetSecrets(vault)
	authSvc.SetHashLimiter(resilience.NewLimiter(runtime.NumCPU()))
	if !cfg.Auth.Enabled {
		if err := authSvc.EnsureLocalUser(ctx); err != nil {
			return fmt.Errorf("local user: %w", err)
		}
		slog.Warn("authentication disabled, all requests act as the local user")
	}
	authSvc.StartTokenCleanup(ctx, cfg.Auth.TokenPurgeInterval)

	todoSvc := service.NewTodoService(store, events, holder)
	todoSvc.SetMetrics(metrics)
	funSvc := service.NewFunService(store, events, holder)
	funSvc.SetMetrics(metrics)

	hub := ws.NewHub(originHosts(cfg.Server.CORSOrigins))
	defer hub.Close()
	stopRealtime, err := service.NewRealtimeService(queue, hub).Start(ctx)
	if err != nil {
		return fmt.Errorf("realtime: %w", err)
	}
	defer stopRealtime()

	// --- HTTP ---

	handlers := &nxhttp.Handlers{
		Auth:               authSvc,
		Todos:              todoSvc,
		Habits:             service.NewHabitService(store, events, holder),
		Funs:               funSvc,
		Notes:              service.NewNoteService(store, events),
		Version:            version,
		SecureCookies:      cfg.Auth.SecureCookies,
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
	}
	mcpServer := nxmcp.NewServer(nxmcp.ServerConfig{Name: "nextup", Version: version}, nxmcp.ServerDeps{Todos: todoSvc})

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopLimiterCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopLimiterCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(nxotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(nxhttp.Logger)
	r.Use(nxhttp.SecurityHeaders)
	r.Use(nxhttp.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))
	r.Use(limiter.Handler)

	r.Get("/health", healthHandler(pool, queue))
	r.Get("/ws", hub.HandleWS)
	r.Handle("/mcp", mcpServer.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(middleware.Idempotency(idempotencyKV))
		nxhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown; SIGHUP reloads settings and secrets.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("server: %w", err)
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				if err := holder.Reload(); err != nil {
					slog.Error("config reload failed, keeping previous config", "error", err)
				}
				if err := vault.Reload(); err != nil {
					slog.Error("secret reload failed, keeping previous secrets", "error", err)
				}
				continue
			}
			slog.Info("shutting down server", "signal", sig.String())
			shutdownCtx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

// secretLoader layers the JWT secret from config, the environment and a
// secret file, in increasing precedence.
func secretLoader(cfg *config.Config) secrets.Loader {
	l := secrets.Chain(
		secrets.Static(map[string]string{secrets.JWTSecretKey: cfg.Auth.JWTSecret}),
		secrets.EnvLoader(secrets.JWTSecretKey),
		secrets.FileLoader(secrets.JWTSecretKey),
	)
	if cfg.Auth.Enabled {
		l = secrets.RequireMinLength(l, secrets.JWTSecretKey, config.MinJWTSecretLength)
	}
	return l
}

// healthHandler reports whether postgres and NATS are reachable.
func healthHandler(pool *pgxpool.Pool, queue *nxnats.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			status.Status, status.Postgres, code = "degraded", "unreachable", http.StatusServiceUnavailable
		}
		if !queue.IsConnected() {
			status.Status, status.NATS, code = "degraded", "disconnected", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}

// originHosts turns CORS origins into the host patterns the websocket
// handshake checks.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		} else {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
