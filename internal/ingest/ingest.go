package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	Document   entity.Document
	HashHex    string
	Size       int64
	ReadAt     time.Time
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Ingestor is the behavior the batch runners depend on.
type Ingestor interface {
	// IngestPath reads a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory reads all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// Documents returns one document per matched file in walk order. Files that
// could not be read keep their slot with Document.Err set.
func Documents(results []IngestionResult) []entity.Document {
	docs := make([]entity.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document)
	}
	return docs
}
