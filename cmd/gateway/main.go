package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dwikikusuma/codshop/internal/httpapi"
	"github.com/dwikikusuma/codshop/internal/platform/wire"
	"github.com/dwikikusuma/codshop/pkg/config"
	"github.com/dwikikusuma/codshop/pkg/logger"
	"github.com/dwikikusuma/codshop/pkg/shutdown"
	"github.com/dwikikusuma/codshop/pkg/tracing"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "gateway",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	stopTracing, err := tracing.Setup(ctx, tracing.Options{Service: "codshop-gateway", Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		log.Error("tracing setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	stack, err := wire.Build(ctx, cfg, log, "gateway")
	if err != nil {
		log.Error("startup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Error("close failed", slog.Any("err", err))
		}
	}()

	handler := httpapi.New(stack.Cart, stack.Checkout, stack.Orders, log, stack.Metrics).Routes(httpapi.Options{
		Timeout: cfg.RequestTimeout,
		Ready:   stack.Ready,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr), slog.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	if err := shutdown.Drain(10*time.Second, server.Shutdown, func() { _ = server.Close() }); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := stopTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", slog.Any("err", err))
	}
	log.Info("bye")
}
