package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// DocumentExtractor turns one NF-e payload into a record.
type DocumentExtractor interface {
	ExtractBytes(data []byte, name string) (entity.InvoiceRecord, error)
}

// ExtractStage isolates per-document failures: every document yields exactly
// one record, empty when the document could not be read or parsed.
type ExtractStage struct {
	Extractor DocumentExtractor
	Logger    *slog.Logger
}

func NewExtractStage(x DocumentExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: x, Logger: logger}
}

// Run extracts a single document. The returned error, if any, is a
// *common.DocumentError naming the document. A document whose context is
// already done, for instance past its pool task timeout, is not extracted.
func (s *ExtractStage) Run(ctx context.Context, doc entity.Document) (entity.InvoiceRecord, *common.DocumentError) {
	if err := ctx.Err(); err != nil {
		s.Logger.Warn("batch.document.skipped", "document", doc.Name, "error", err)
		return entity.InvoiceRecord{}, common.NewDocumentError(doc.Name, err)
	}
	if doc.Err != nil {
		s.Logger.Warn("batch.document.unreadable", "document", doc.Name, "error", doc.Err)
		return entity.InvoiceRecord{}, common.NewDocumentError(doc.Name, doc.Err)
	}

	rec, err := s.Extractor.ExtractBytes(doc.Data, doc.Name)
	if err == nil {
		return rec, nil
	}
	var docErr *common.DocumentError
	if !errors.As(err, &docErr) {
		docErr = common.NewDocumentError(doc.Name, err)
	}
	s.Logger.Warn("batch.document.malformed", "document", doc.Name, "error", docErr.Cause)
	return entity.InvoiceRecord{}, docErr
}
