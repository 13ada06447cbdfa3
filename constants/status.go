package constants

// RunStatus is the canonical status for rows in batch_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"   // extraction in progress
	RunStatusCompleted RunStatus = "COMPLETED" // table built, deduplicated and summarized
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure (cancelled or export failed)
)
