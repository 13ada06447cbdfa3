package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notafiscal/constants"
	"github.com/joseph-ayodele/notafiscal/internal/common"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), common.DatabaseConfig{DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db, nil)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC)
	run := entity.BatchRun{
		ID:        uuid.New(),
		Source:    "cli",
		Status:    string(constants.RunStatusRunning),
		Documents: 3,
		StartedAt: started,
	}
	if err := repo.Start(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.RunStatusRunning) || got.FinishedAt != nil || !got.StartedAt.Equal(started) {
		t.Fatalf("running run = %+v", got)
	}

	finished := started.Add(2 * time.Second)
	run.Status = string(constants.RunStatusCompleted)
	run.Rows = 2
	run.DuplicatesRemoved = 1
	run.Failures = 1
	run.FinishedAt = &finished
	failures := []entity.DocumentFailure{{Document: "bad.xml", Position: 1, Error: "malformed document"}}
	if err := repo.Finish(ctx, run, failures); err != nil {
		t.Fatal(err)
	}

	got, err = repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.RunStatusCompleted) || got.Rows != 2 || got.DuplicatesRemoved != 1 || got.Failures != 1 || got.Documents != 3 {
		t.Errorf("finished run = %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("finished_at = %v", got.FinishedAt)
	}
	if got.ErrorMessage != nil {
		t.Errorf("error_message = %v", *got.ErrorMessage)
	}

	gotFailures, err := repo.Failures(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotFailures, failures) {
		t.Errorf("failures = %+v", gotFailures)
	}
}

func TestRunGetNotFound(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunFinishUnknown(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	err := repo.Finish(context.Background(), entity.BatchRun{ID: uuid.New(), Status: string(constants.RunStatusFailed)}, nil)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListRecent(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run := entity.BatchRun{
			ID:        uuid.New(),
			Status:    string(constants.RunStatusRunning),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		ids = append(ids, run.ID)
		if err := repo.Start(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("ListRecent = %+v", runs)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{}, nil)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != common.CodeConfig {
		t.Errorf("err = %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &DB{Dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}
