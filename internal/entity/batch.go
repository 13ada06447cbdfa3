package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentFailure is the presentation-facing view of a document that could not be parsed.
type DocumentFailure struct {
	Document string `json:"document"`
	Position int    `json:"position"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of one processing run over a batch of documents.
type BatchResult struct {
	RunID             uuid.UUID         `json:"run_id"`
	Documents         int               `json:"documents"`
	Table             InvoiceTable      `json:"rows"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	Summary           SummaryStats      `json:"summary"`
	Failures          []DocumentFailure `json:"errors"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
}

// BatchRun is a persisted run-history row. It never carries table contents.
type BatchRun struct {
	ID                uuid.UUID  `json:"id"`
	Source            string     `json:"source"`
	Status            string     `json:"status"`
	Documents         int        `json:"documents"`
	Rows              int        `json:"rows"`
	DuplicatesRemoved int        `json:"duplicates_removed"`
	Failures          int        `json:"failures"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
}
