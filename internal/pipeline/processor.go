package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notafiscal/constants"
	"github.com/joseph-ayodele/notafiscal/internal/aggregate"
	"github.com/joseph-ayodele/notafiscal/internal/async"
	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// ErrorHandler receives one event per document that could not be extracted,
// in document order.
type ErrorHandler func(ctx context.Context, position int, err *common.DocumentError)

// RunRecorder stores run metadata. Recording failures are logged and never
// fail the batch.
type RunRecorder interface {
	Start(ctx context.Context, run entity.BatchRun) error
	Finish(ctx context.Context, run entity.BatchRun, failures []entity.DocumentFailure) error
}

// Processor runs one batch: extract every document, build the table,
// deduplicate it and summarize the result.
type Processor struct {
	Logger   *slog.Logger
	Extract  *ExtractStage
	pool     *async.Pool
	onError  ErrorHandler
	recorder RunRecorder
	now      func() time.Time
}

type Option func(*Processor)

func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Processor) { p.onError = h }
}

func WithRunRecorder(r RunRecorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithPool extracts documents concurrently. Table order still follows
// document order.
func WithPool(pool *async.Pool) Option {
	return func(p *Processor) {
		if pool != nil {
			p.pool = pool
		}
	}
}

func NewProcessor(logger *slog.Logger, extract *ExtractStage, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		Logger:  logger,
		Extract: extract,
		pool:    async.NewPool(logger),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessBatch starts from an empty table every call. It only fails when ctx is
// cancelled; malformed documents are reported through the error handler and
// the result's Failures.
func (p *Processor) ProcessBatch(ctx context.Context, docs []entity.Document) (*entity.BatchResult, error) {
	runID := uuid.New()
	ctx = common.WithRunID(ctx, runID.String())
	logger := common.LoggerFromContext(ctx, p.Logger)

	started := p.now()
	run := entity.BatchRun{
		ID:        runID,
		Source:    common.SourceFromContext(ctx),
		Status:    string(constants.RunStatusRunning),
		Documents: len(docs),
		StartedAt: started,
	}
	p.recordStart(ctx, logger, run)
	logger.Info("batch.start", "documents", len(docs), "workers", p.pool.Workers())

	records := make([]entity.InvoiceRecord, len(docs))
	errs := make([]*common.DocumentError, len(docs))
	if err := p.pool.Map(ctx, len(docs), func(ctx context.Context, i int) {
		records[i], errs[i] = p.Extract.Run(ctx, docs[i])
	}); err != nil {
		logger.Error("batch.cancelled", "error", err)
		finished := p.now()
		run.Status = string(constants.RunStatusFailed)
		run.FinishedAt = &finished
		msg := err.Error()
		run.ErrorMessage = &msg
		p.recordFinish(context.WithoutCancel(ctx), logger, run, nil)
		return nil, fmt.Errorf("process batch: %w", err)
	}

	var failures []entity.DocumentFailure
	for i, docErr := range errs {
		if docErr == nil {
			continue
		}
		failures = append(failures, entity.DocumentFailure{
			Document: docErr.Name,
			Position: i,
			Error:    docErr.Error(),
		})
		if p.onError != nil {
			p.onError(ctx, i, docErr)
		}
	}

	table := aggregate.BuildTable(records)
	deduped, removed := aggregate.Deduplicate(table)
	summary := aggregate.Summarize(deduped)
	finished := p.now()

	res := &entity.BatchResult{
		RunID:             runID,
		Documents:         len(docs),
		Table:             deduped,
		DuplicatesRemoved: removed,
		Summary:           summary,
		Failures:          failures,
		StartedAt:         started,
		FinishedAt:        finished,
	}

	run.Status = string(constants.RunStatusCompleted)
	run.Rows = len(deduped)
	run.DuplicatesRemoved = removed
	run.Failures = len(failures)
	run.FinishedAt = &finished
	p.recordFinish(ctx, logger, run, failures)

	logger.Info("batch.done",
		"documents", len(docs),
		"rows", len(deduped),
		"duplicates_removed", removed,
		"failures", len(failures),
		"elapsed_ms", finished.Sub(started).Milliseconds(),
	)
	return res, nil
}

func (p *Processor) recordStart(ctx context.Context, logger *slog.Logger, run entity.BatchRun) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Start(ctx, run); err != nil {
		logger.Warn("batch.history.start_failed", "error", err)
	}
}

func (p *Processor) recordFinish(ctx context.Context, logger *slog.Logger, run entity.BatchRun, failures []entity.DocumentFailure) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Finish(ctx, run, failures); err != nil {
		logger.Warn("batch.history.finish_failed", "error", err)
	}
}
