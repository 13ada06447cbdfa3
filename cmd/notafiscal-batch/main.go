package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/notafiscal/internal/async"
	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/export"
	"github.com/joseph-ayodele/notafiscal/internal/ingest"
	"github.com/joseph-ayodele/notafiscal/internal/nfe"
	"github.com/joseph-ayodele/notafiscal/internal/pipeline"
	repo "github.com/joseph-ayodele/notafiscal/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of NF-e XML files to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to <dir>/NotaFiscal.xlsx)")
		workers = flag.Int("workers", 0, "parallel extraction workers (defaults to BATCH_WORKERS)")
		watch   = flag.Bool("watch", false, "keep running and reprocess the directory when XML files change")
		quiet   = flag.Bool("quiet", false, "do not print the result table")
		verify  = flag.Bool("verify", true, "re-read the written workbook and compare it with the table")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
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
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, cfg.Batch.ExportFilename)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = common.WithSource(ctx, "cli")

	var opts []pipeline.Option
	if cfg.Database.DSN != "" {
		db, err := repo.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to open run history database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithRunRecorder(repo.NewRunRepository(db, logger)))
	}
	opts = append(opts,
		pipeline.WithPool(async.NewPool(logger,
			async.WithWorkers(cfg.Batch.Workers),
			async.WithTaskTimeout(cfg.Batch.DocumentTimeout),
		)),
		pipeline.WithErrorHandler(func(_ context.Context, position int, err *common.DocumentError) {
			printError("Error: could not read %s (document #%d): %v\n", err.Name, position+1, err.Cause)
		}),
	)

	r := &runner{
		logger:     logger,
		ingestor:   ingest.NewFSIngestor(logger),
		processor:  pipeline.NewProcessor(logger, pipeline.NewExtractStage(nfe.NewExtractor(logger), logger), opts...),
		exporter:   export.NewService(logger),
		dir:        *dir,
		out:        *out,
		skipHidden: cfg.Batch.SkipHidden,
		verify:     *verify,
		quiet:      *quiet,
	}

	if err := r.run(ctx); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	if *watch {
		if err := r.watch(ctx, cfg.Batch.WatchDebounce); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
	}
}
