package services_test

import (
	"testing"
	"time"

	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/services"
)

func setupJournal(t *testing.T) *services.JournalService {
	t.Helper()
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.MigrateJournal(); err != nil {
		t.Fatalf("failed to migrate journal: %v", err)
	}
	return services.NewJournalService(db)
}

func TestJournalService_RunLifecycle(t *testing.T) {
	journal := setupJournal(t)

	started := time.Now().Add(-time.Minute)
	run := &models.Run{
		ID:          "run-1",
		Mode:        models.ModeRename,
		ModuleName:  "Questions",
		Target:      "question_KOLOM",
		Replacement: "question_column",
		Host:        "ci (linux)",
		StartedAt:   started,
	}
	if err := journal.StartRun(run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	got, err := journal.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("expected no finish time on a running run")
	}

	for i, after := range []string{"a question_column", "question_column b"} {
		err := journal.RecordMutation(models.Mutation{
			RunID:         "run-1",
			UnitID:        "u1",
			QualifiedName: "Questions.Home",
			ElementID:     []string{"e1", "e2"}[i],
			ElementName:   "container",
			Before:        "before",
			After:         after,
		})
		if err != nil {
			t.Fatalf("RecordMutation failed: %v", err)
		}
	}

	finished := time.Now()
	rev := 7
	run.Status = models.RunCommitted
	run.WorkingCopyID = "wc-1"
	run.Replacements = 2
	run.Revision = &rev
	run.FinishedAt = &finished
	if err := journal.FinishRun(run); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err = journal.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunCommitted {
		t.Errorf("expected status committed, got %s", got.Status)
	}
	if got.Replacements != 2 {
		t.Errorf("expected 2 replacements, got %d", got.Replacements)
	}
	if got.Revision == nil || *got.Revision != 7 {
		t.Errorf("expected revision 7, got %v", got.Revision)
	}
	if got.WorkingCopyID != "wc-1" {
		t.Errorf("expected working copy wc-1, got %s", got.WorkingCopyID)
	}
	if got.FinishedAt == nil {
		t.Error("expected finish time")
	}

	mutations, err := journal.GetMutations("run-1")
	if err != nil {
		t.Fatalf("GetMutations failed: %v", err)
	}
	if len(mutations) != 2 {
		t.Fatalf("expected 2 mutations, got %d", len(mutations))
	}
	if mutations[0].ElementID != "e1" || mutations[1].After != "question_column b" {
		t.Errorf("unexpected mutation order: %+v", mutations)
	}
}

func TestJournalService_FinishUnknownRun(t *testing.T) {
	journal := setupJournal(t)

	err := journal.FinishRun(&models.Run{ID: "missing", Status: models.RunFailed})
	if err != services.ErrRunNotFound {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := journal.GetRun("missing"); err != services.ErrRunNotFound {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestJournalService_GetRunsNewestFirst(t *testing.T) {
	journal := setupJournal(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		err := journal.StartRun(&models.Run{
			ID:          id,
			Mode:        models.ModeCreateOnline,
			Target:      "t",
			Replacement: "r",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	runs, err := journal.GetRuns(2, 0)
	if err != nil {
		t.Fatalf("GetRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestJournalService_NilIsNoop(t *testing.T) {
	var journal *services.JournalService
	if err := journal.StartRun(&models.Run{ID: "x"}); err != nil {
		t.Errorf("expected nil journal to ignore StartRun, got %v", err)
	}
	if err := journal.RecordMutation(models.Mutation{RunID: "x"}); err != nil {
		t.Errorf("expected nil journal to ignore RecordMutation, got %v", err)
	}
	if err := journal.FinishRun(&models.Run{ID: "x"}); err != nil {
		t.Errorf("expected nil journal to ignore FinishRun, got %v", err)
	}
}
