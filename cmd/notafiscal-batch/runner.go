package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/notafiscal/internal/entity"
	"github.com/joseph-ayodele/notafiscal/internal/export"
	"github.com/joseph-ayodele/notafiscal/internal/ingest"
	"github.com/joseph-ayodele/notafiscal/internal/report"
)

type batchProcessor interface {
	ProcessBatch(ctx context.Context, docs []entity.Document) (*entity.BatchResult, error)
}

type runner struct {
	logger     *slog.Logger
	ingestor   ingest.Ingestor
	processor  batchProcessor
	exporter   *export.Service
	dir        string
	out        string
	skipHidden bool
	verify     bool
	quiet      bool
}

// run processes the whole directory as one batch and writes the workbook.
func (r *runner) run(ctx context.Context) error {
	results, stats, err := r.ingestor.IngestDirectory(ctx, r.dir, r.skipHidden)
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}
	r.logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed)

	res, err := r.processor.ProcessBatch(ctx, ingest.Documents(results))
	if err != nil {
		return err
	}

	data, err := r.exporter.ExportXLSX(ctx, res.Table)
	if err != nil {
		return err
	}
	if r.verify {
		if err := verifyWorkbook(data, res.Table); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(r.out, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	r.logger.Info("batch processing complete",
		"run_id", res.RunID,
		"documents", res.Documents,
		"rows", len(res.Table),
		"duplicates_removed", res.DuplicatesRemoved,
		"failures", len(res.Failures),
		"output_file", r.out)

	if !r.quiet {
		fmt.Print(report.Render(res))
		fmt.Printf("Output: %s\n", r.out)
	}
	return nil
}

// watch reruns the batch after each burst of XML changes until ctx is done.
func (r *runner) watch(ctx context.Context, debounce time.Duration) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{r.dir},
		SkipHidden: r.skipHidden,
		Debounce:   debounce,
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}
	r.logger.Info("watching for changes", "dir", r.dir)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped")
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			r.logger.Info("change detected", "path", path)
			drain(events)
			if err := r.run(ctx); err != nil {
				r.logger.Error("batch failed", "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("watcher error", "error", err)
		}
	}
}

// drain discards events already queued so one burst triggers one run.
func drain(events <-chan string) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func verifyWorkbook(data []byte, table entity.InvoiceTable) error {
	got, err := export.ReadXLSX(data)
	if err != nil {
		return fmt.Errorf("verify workbook: %w", err)
	}
	if len(got) != len(table) {
		return fmt.Errorf("verify workbook: wrote %d rows, table has %d", len(got), len(table))
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".notafiscal-*.xlsx")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
