package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/notafiscal/internal/async"
	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/export"
	"github.com/joseph-ayodele/notafiscal/internal/nfe"
	"github.com/joseph-ayodele/notafiscal/internal/pipeline"
	repo "github.com/joseph-ayodele/notafiscal/internal/repository"
	"github.com/joseph-ayodele/notafiscal/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	popts := []pipeline.Option{
		pipeline.WithPool(async.NewPool(logger,
			async.WithWorkers(cfg.Batch.Workers),
			async.WithTaskTimeout(cfg.Batch.DocumentTimeout),
		)),
	}
	sopts := []server.Option{
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes()),
		server.WithExportFilename(cfg.Batch.ExportFilename),
	}

	var pinger server.Pinger
	if cfg.Database.DSN != "" {
		db, err := repo.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to open run history database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		runs := repo.NewRunRepository(db, logger)
		popts = append(popts, pipeline.WithRunRecorder(runs))
		sopts = append(sopts, server.WithRunRepository(runs))
		pinger = db
	} else {
		logger.Info("run history disabled", "reason", "DB_URL not set")
	}

	health := server.NewHealthChecker(pinger, cfg.Database.DialTimeout, logger)
	sopts = append(sopts, server.WithHealthChecker(health))
	go health.Run(ctx, 15*time.Second)

	proc := pipeline.NewProcessor(logger, pipeline.NewExtractStage(nfe.NewExtractor(logger), logger), popts...)
	srv, err := server.NewServer(logger, proc, export.NewService(logger), sopts...)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	// gRPC server: health + reflection for grpcurl
	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
