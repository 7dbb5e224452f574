package devserver_test

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/database"
	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/validation"
)

func setupServer(t *testing.T) *devserver.Server {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.MigrateServer(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	server := devserver.New(db, config.DevServerConfig{BcryptCost: bcrypt.MinCost}, nil)
	t.Cleanup(server.Jobs.Wait)
	return server
}

func seedProject(t *testing.T, server *devserver.Server) {
	t.Helper()
	units := []*models.Unit{{
		ID:            "home",
		Kind:          models.KindPage,
		QualifiedName: "Questions.Home",
		Root: &models.Node{ID: "root", Type: string(models.KindPage), Children: []*models.Node{
			{ID: "c1", Type: "Pages$DivContainer", Name: models.StringPtr("container1"), Class: models.StringPtr("question_KOLOM")},
		}},
	}}
	if err := server.Projects.Seed("proj-1", "Survey", units); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
}

func TestAuthService(t *testing.T) {
	server := setupServer(t)

	if err := server.Auth.EnsureUser("dev", "secret"); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if err := server.Auth.Authenticate("dev", "secret"); err != nil {
		t.Errorf("expected valid credentials, got %v", err)
	}
	if err := server.Auth.Authenticate("dev", "wrong"); !errors.Is(err, devserver.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := server.Auth.Authenticate("nobody", "secret"); !errors.Is(err, devserver.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	// rotating the key replaces the hash
	if err := server.Auth.EnsureUser("dev", "rotated"); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if err := server.Auth.Authenticate("dev", "secret"); !errors.Is(err, devserver.ErrInvalidCredentials) {
		t.Errorf("expected old key to be rejected, got %v", err)
	}
	if err := server.Auth.Authenticate("dev", "rotated"); err != nil {
		t.Errorf("expected rotated key to work, got %v", err)
	}
}

func TestProjectService_Revisions(t *testing.T) {
	server := setupServer(t)
	seedProject(t, server)

	// seeding again is a no-op
	seedProject(t, server)

	units, number, err := server.Projects.Revision("proj-1", models.Revision{Number: models.LatestRevision})
	if err != nil {
		t.Fatalf("Revision failed: %v", err)
	}
	if number != 1 || len(units) != 1 {
		t.Fatalf("expected revision 1 with 1 unit, got %d with %d", number, len(units))
	}

	next, err := server.Projects.AddRevision("proj-1", "", units, "test")
	if err != nil {
		t.Fatalf("AddRevision failed: %v", err)
	}
	if next != 2 {
		t.Errorf("expected revision 2, got %d", next)
	}

	branch, err := server.Projects.AddRevision("proj-1", "feature", units, "test")
	if err != nil {
		t.Fatalf("AddRevision failed: %v", err)
	}
	if branch != 1 {
		t.Errorf("expected branches to number independently, got %d", branch)
	}

	if _, _, err := server.Projects.Revision("proj-1", models.Revision{Number: 9}); !errors.Is(err, devserver.ErrRevisionNotFound) {
		t.Errorf("expected ErrRevisionNotFound, got %v", err)
	}
	if _, _, err := server.Projects.Revision("nope", models.Revision{}); !errors.Is(err, devserver.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestWorkingCopyService_Sessions(t *testing.T) {
	server := setupServer(t)
	seedProject(t, server)

	wc, err := server.WorkingCopies.Create("proj-1", models.Revision{Number: models.LatestRevision})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if wc.Name != "Survey" || wc.BaseRevision != 1 {
		t.Errorf("unexpected working copy: %+v", wc)
	}

	if _, err := server.WorkingCopies.ListUnits(wc.ID, models.KindPage); !errors.Is(err, devserver.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
	if err := server.WorkingCopies.Close(wc.ID); !errors.Is(err, devserver.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}

	if _, err := server.WorkingCopies.Open(wc.ID); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	refs, err := server.WorkingCopies.ListUnits(wc.ID, models.KindPage)
	if err != nil {
		t.Fatalf("ListUnits failed: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "home" {
		t.Fatalf("unexpected refs: %+v", refs)
	}
	layouts, err := server.WorkingCopies.ListUnits(wc.ID, models.KindLayout)
	if err != nil {
		t.Fatalf("ListUnits failed: %v", err)
	}
	if len(layouts) != 0 {
		t.Errorf("expected no layouts, got %d", len(layouts))
	}

	if err := server.WorkingCopies.Close(wc.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := server.WorkingCopies.Unit(wc.ID, "home"); !errors.Is(err, devserver.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen after close, got %v", err)
	}
}

func TestWorkingCopyService_ApplyDeltas(t *testing.T) {
	server := setupServer(t)
	seedProject(t, server)

	wc, err := server.WorkingCopies.Create("proj-1", models.Revision{Number: models.LatestRevision})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := server.WorkingCopies.Open(wc.ID); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err = server.WorkingCopies.ApplyDeltas(wc.ID, []models.Delta{
		{UnitID: "home", ElementID: "c1", Property: models.PropertyClass, Value: "question_column"},
	})
	if err != nil {
		t.Fatalf("ApplyDeltas failed: %v", err)
	}

	unit, err := server.WorkingCopies.Unit(wc.ID, "home")
	if err != nil {
		t.Fatalf("Unit failed: %v", err)
	}
	if got := models.Find(unit.Root, "c1").ClassValue(); got != "question_column" {
		t.Errorf("expected question_column, got %q", got)
	}

	// a bad delta rolls back the whole batch
	err = server.WorkingCopies.ApplyDeltas(wc.ID, []models.Delta{
		{UnitID: "home", ElementID: "c1", Property: models.PropertyClass, Value: "other"},
		{UnitID: "home", ElementID: "missing", Property: models.PropertyClass, Value: "x"},
	})
	if !errors.Is(err, devserver.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
	err = server.WorkingCopies.ApplyDeltas(wc.ID, []models.Delta{
		{UnitID: "home", ElementID: "c1", Property: "caption", Value: "x"},
	})
	if !errors.Is(err, devserver.ErrInvalidDelta) {
		t.Errorf("expected ErrInvalidDelta, got %v", err)
	}

	unit, err = server.WorkingCopies.Unit(wc.ID, "home")
	if err != nil {
		t.Fatalf("Unit failed: %v", err)
	}
	if got := models.Find(unit.Root, "c1").ClassValue(); got != "question_column" {
		t.Errorf("expected rollback to keep question_column, got %q", got)
	}
}

func TestJobService_CommitBroadcasts(t *testing.T) {
	server := setupServer(t)
	seedProject(t, server)

	wc, err := server.WorkingCopies.Create("proj-1", models.Revision{Number: models.LatestRevision})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := server.Jobs.CreateCommit(wc.ID, ""); !errors.Is(err, devserver.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
	if _, err := server.WorkingCopies.Open(wc.ID); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	job, err := server.Jobs.CreateCommit(wc.ID, "")
	if err != nil {
		t.Fatalf("CreateCommit failed: %v", err)
	}
	if job.Status != models.JobPending {
		t.Errorf("expected pending job, got %s", job.Status)
	}

	ch := server.Jobs.Subscribe(job.ID)
	defer server.Jobs.Unsubscribe(job.ID, ch)

	if err := server.Jobs.Execute(job.ID); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var events []models.JobEvent
	timeout := time.After(5 * time.Second)
	for len(events) < 2 {
		select {
		case e := <-ch:
			events = append(events, e)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %+v", events)
		}
	}
	if events[0].Status != models.JobRunning {
		t.Errorf("expected running first, got %s", events[0].Status)
	}
	if events[1].Status != models.JobCompleted || events[1].Revision != 2 {
		t.Errorf("expected completed revision 2, got %+v", events[1])
	}

	stored, err := server.Jobs.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if stored.Status != models.JobCompleted || stored.Revision != 2 {
		t.Errorf("unexpected stored job: %+v", stored)
	}
	if ev := devserver.Event(stored); !ev.Status.Done() {
		t.Errorf("expected terminal event, got %+v", ev)
	}

	updated, err := server.WorkingCopies.Get(wc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.BaseRevision != 2 {
		t.Errorf("expected working copy at revision 2, got %d", updated.BaseRevision)
	}

	if _, err := server.Jobs.GetJob("missing"); !errors.Is(err, devserver.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestServer_Seed(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.MigrateServer(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	cfg := config.DevServerConfig{
		BcryptCost: bcrypt.MinCost,
		Users:      []config.DevUser{{Username: "dev", APIKey: "secret"}},
		Projects:   []config.DevProject{{ID: "p", Template: "/nonexistent/template.yaml"}},
	}
	if err := devserver.New(db, cfg, nil).Seed(); err == nil {
		t.Error("expected missing template to fail the seed")
	}
}

func TestServer_SeedRejectsWeakKey(t *testing.T) {
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.MigrateServer(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	cfg := config.DevServerConfig{
		BcryptCost: bcrypt.MinCost,
		Users:      []config.DevUser{{Username: "dev", APIKey: "changeme"}},
	}
	err = devserver.New(db, cfg, nil).Seed()
	if !errors.Is(err, validation.ErrKeyCommon) {
		t.Errorf("expected ErrKeyCommon, got %v", err)
	}
}
