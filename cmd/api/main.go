package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	cartgrpc "github.com/dwikikusuma/codshop/internal/cart/grpc"
	cataloggrpc "github.com/dwikikusuma/codshop/internal/catalog/grpc"
	checkoutgrpc "github.com/dwikikusuma/codshop/internal/checkout/grpc"
	ordergrpc "github.com/dwikikusuma/codshop/internal/order/grpc"
	"github.com/dwikikusuma/codshop/internal/platform/wire"
	"github.com/dwikikusuma/codshop/pkg/config"
	"github.com/dwikikusuma/codshop/pkg/logger"
	"github.com/dwikikusuma/codshop/pkg/shutdown"
	"github.com/dwikikusuma/codshop/pkg/tracing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "api", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	stopTracing, err := tracing.Setup(ctx, tracing.Options{Service: "codshop-api", Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		log.Error("tracing setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	stack, err := wire.Build(ctx, cfg, log, "api")
	if err != nil {
		log.Error("startup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Error("close failed", slog.Any("err", err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen failed", slog.Any("err", err), slog.String("addr", addr))
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(log)))
	cataloggrpc.Register(grpcServer, cataloggrpc.NewServer(stack.Catalog))
	cartgrpc.Register(grpcServer, cartgrpc.NewServer(stack.Cart))
	checkoutgrpc.Register(grpcServer, checkoutgrpc.NewServer(stack.Checkout))
	ordergrpc.Register(grpcServer, ordergrpc.NewServer(stack.Orders))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("grpc starting", slog.String("addr", addr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc serve error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	err = shutdown.Drain(10*time.Second, func(context.Context) error {
		grpcServer.GracefulStop()
		return nil
	}, grpcServer.Stop)
	if errors.Is(err, shutdown.ErrTimeout) {
		log.Warn("graceful stop timeout, forced stop")
	}

	wg.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := stopTracing(stopCtx); err != nil {
		log.Warn("tracing shutdown failed", slog.Any("err", err))
	}
	log.Info("bye")
}

func logUnary(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.InfoContext(ctx, "grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return resp, err
	}
}
