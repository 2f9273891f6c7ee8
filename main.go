/*
 * file: main.go
 * package: main
 * description:
 *     Wires every component together: config, logger, plugin registry,
 *     repository, Room Manager, Resource Monitor, and the Transport
 *     Gateway, then serves HTTP/websocket traffic with a graceful
 *     shutdown. Adapted from the teacher's dependency-injection main,
 *     generalized from a single hardcoded Tic-Tac-Toe wiring to a
 *     config-driven, pluggable-rules server.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/juan10024/tictactoe-test/internal/adapters/db"
	"github.com/juan10024/tictactoe-test/internal/adapters/gateway"
	"github.com/juan10024/tictactoe-test/internal/adapters/handlers"
	"github.com/juan10024/tictactoe-test/internal/config"
	applog "github.com/juan10024/tictactoe-test/internal/platform/log"
	"github.com/juan10024/tictactoe-test/internal/core/monitor"
	"github.com/juan10024/tictactoe-test/internal/core/ports"
	"github.com/juan10024/tictactoe-test/internal/core/registry"
	"github.com/juan10024/tictactoe-test/internal/core/room"
	"github.com/juan10024/tictactoe-test/internal/core/rules/checkers"
	"github.com/juan10024/tictactoe-test/internal/infra/repository"
)

func main() {
	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := applog.New(cfg.LogLevel)

	reg := registry.New()
	if err := reg.Register(checkers.New()); err != nil {
		return fmt.Errorf("registering checkers plugin: %w", err)
	}
	if cat, err := config.LoadCatalog(cfg.CatalogPath); err != nil {
		logger.WithError(err).Warn("failed to load plugin catalog, using built-in display names")
	} else {
		for gameID, entry := range cat.Overrides() {
			reg.Override(gameID, entry.Name, entry.Category)
		}
	}

	repo, err := buildRepository(cfg, logger)
	if err != nil {
		return fmt.Errorf("repository setup failed: %w", err)
	}

	manager := room.NewManager(reg, repo, logger, room.Config{
		GraceWindow:             cfg.GraceWindow,
		IdleWindow:              cfg.IdleWindow,
		SweepInterval:           cfg.SweepInterval,
		StartSingleFlightWindow: cfg.StartSingleFlightWindow,
	})

	mon := monitor.New()

	gw := gateway.New(manager, reg, mon, logger, gateway.Config{
		DevMode:            cfg.DevMode,
		AllowedOrigins:     cfg.AllowedOrigins,
		MetricsCadence:     cfg.MetricsCadence,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)

	stopGateway := make(chan struct{})
	go gw.Run(stopGateway)

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.HandleFunc("/api/rooms", handlers.NewRoomsHandler(manager).List)
	mux.HandleFunc("/healthz", handlers.NewHealthHandler().Healthz)
	mux.Handle("/metrics", handlers.MetricsHandler(mon))

	server := &http.Server{
		Handler:      corsMiddleware(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, boundPort, err := listenWithUpwardScan(cfg.Port, 20)
	if err != nil {
		return fmt.Errorf("no port available starting at %d: %w", cfg.Port, err)
	}
	if boundPort != cfg.Port {
		logger.WithFields(logrus.Fields{"requested_port": cfg.Port, "bound_port": boundPort}).
			Warn("preferred port was in use, bound to the next available port")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"port": boundPort, "tls": cfg.UsesTLS()}).Info("server starting")
		if cfg.UsesTLS() {
			serveErr <- server.ServeTLS(listener, cfg.TLSCert, cfg.TLSKey)
		} else {
			serveErr <- server.Serve(listener)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sig:
		logger.Info("shutdown signal received")
	}

	close(stopGateway)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	return nil
}

func buildRepository(cfg *config.Config, logger *logrus.Logger) (ports.Repository, error) {
	if !cfg.UsesPostgres() {
		logger.Info("no database configured, using in-memory repository")
		return repository.NewMemoryRepository(), nil
	}
	gdb, err := db.Initialize(db.DSN{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return nil, err
	}
	return repository.NewGormRepository(gdb), nil
}

// listenWithUpwardScan binds the preferred port, scanning upward on
// "address already in use" per spec.md §6, logging (by the caller) the
// port actually bound.
func listenWithUpwardScan(preferred, maxAttempts int) (net.Listener, int, error) {
	var lastErr error
	for port := preferred; port < preferred+maxAttempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, lastErr
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
