package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/expensesplit/internal/auth"
	"github.com/mmynk/expensesplit/internal/config"
	"github.com/mmynk/expensesplit/internal/expense"
	"github.com/mmynk/expensesplit/internal/metrics"
	"github.com/mmynk/expensesplit/internal/middleware"
	"github.com/mmynk/expensesplit/internal/models"
	"github.com/mmynk/expensesplit/internal/service"
	"github.com/mmynk/expensesplit/internal/storage/sqlite"
	"github.com/mmynk/expensesplit/pkg/api/apiconnect"
	"github.com/mmynk/expensesplit/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTokenDuration)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Order matters: auth sets the participant the others read.
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		limiter.Interceptor(),
		middleware.MetricsInterceptor(m),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	expensePath, expenseHandler := apiconnect.NewExpenseServiceHandler(
		service.NewExpenseService(store, expense.StaticCategories(models.DefaultCategories), m),
		interceptors, connect.WithRecover(recoverPanic),
	)
	mux.Handle(expensePath, expenseHandler)
	groupPath, groupHandler := apiconnect.NewGroupServiceHandler(
		service.NewGroupService(store, m),
		interceptors, connect.WithRecover(recoverPanic),
	)
	mux.Handle(groupPath, groupHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(corsMiddleware(cfg.AllowedOrigins, mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// recoverPanic turns a handler panic into CodeInternal and logs the stack.
func recoverPanic(ctx context.Context, spec connect.Spec, _ http.Header, p any) error {
	slog.Error("Panic recovered",
		"procedure", spec.Procedure,
		"user_id", middleware.GetUserID(ctx),
		"panic", fmt.Sprintf("%v", p),
		"stack_trace", string(debug.Stack()),
	)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}
