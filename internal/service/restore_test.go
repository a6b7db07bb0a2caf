package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ticketmirror/internal/models"
	"ticketmirror/internal/repository"
)

func seedSnapshot(store *stubStore, resource string, entityID int64, updatedAt time.Time, payload string) {
	byID, ok := store.snapshots[resource]
	if !ok {
		byID = make(map[int64]models.RawSnapshot)
		store.snapshots[resource] = byID
	}
	ts := updatedAt
	byID[entityID] = models.RawSnapshot{
		Resource:  resource,
		EntityID:  entityID,
		UpdatedAt: &ts,
		Payload:   datatypes.JSON([]byte(payload)),
	}
}

func newTestRestore(store *stubStore) *RestoreService {
	return NewRestoreService(store, &EntityWriter{Store: store}, zap.NewNop())
}

func TestRestoreRebuildsStructuredRows(t *testing.T) {
	store := newStubStore()
	seedSnapshot(store, repository.ResourceUsers, 1, testNow, `{"id":1,"name":"Ann","email":"ann@example.com"}`)
	seedSnapshot(store, repository.ResourceTickets, 100, testNow, `{"id":100,"subject":"done","status":"closed"}`)
	seedSnapshot(store, repository.ResourceMacros, 7, testNow, `{"id":7,"title":"close-and-thank"}`)

	report, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: "all"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Restored[repository.ResourceUsers] != 1 ||
		report.Restored[repository.ResourceTickets] != 1 ||
		report.Restored[repository.ResourceMacros] != 1 {
		t.Fatalf("unexpected report: %+v", report.Restored)
	}
	u := store.users[1]
	if u.Email == nil || *u.Email != "ann@example.com" {
		t.Fatalf("restored user lost fields: %+v", u)
	}
	tk := store.tickets[100]
	if tk.Status == nil || *tk.Status != "closed" {
		t.Fatalf("restored ticket lost fields: %+v", tk)
	}
	if _, ok := store.macros[7]; !ok {
		t.Fatalf("macro not restored")
	}
}

func TestRestoreSkipsMalformedSnapshots(t *testing.T) {
	store := newStubStore()
	seedSnapshot(store, repository.ResourceUsers, 1, testNow, `{"id":1,"name":"Ann"}`)
	seedSnapshot(store, repository.ResourceUsers, 2, testNow, `{not json`)
	seedSnapshot(store, repository.ResourceUsers, 3, testNow, `{"name":"no id"}`)

	report, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: "users"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Restored[repository.ResourceUsers] != 1 {
		t.Fatalf("restored = %d, want 1", report.Restored[repository.ResourceUsers])
	}
	if report.Skipped[repository.ResourceUsers] != 2 {
		t.Fatalf("skipped = %d, want 2", report.Skipped[repository.ResourceUsers])
	}
	if len(store.users) != 1 {
		t.Fatalf("only the valid snapshot may produce a row, got %d", len(store.users))
	}
}

func TestRestoreScopeValidation(t *testing.T) {
	store := newStubStore()
	if _, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: "comments"}); err == nil {
		t.Fatalf("comments are not restorable, scope must be rejected")
	}
	if _, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: "users,nonsense"}); err == nil {
		t.Fatalf("unknown resource must be rejected")
	}
	if _, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: " , "}); err == nil {
		t.Fatalf("blank scope list must be rejected")
	}
}

func TestRestoreScopeKeepsDependencyOrder(t *testing.T) {
	got, err := resolveScope("macros,users,tickets")
	if err != nil {
		t.Fatalf("resolveScope: %v", err)
	}
	want := []string{repository.ResourceUsers, repository.ResourceTickets, repository.ResourceMacros}
	if len(got) != len(want) {
		t.Fatalf("scope = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scope = %v, want %v", got, want)
		}
	}
}

func TestRestoreDryRunWritesNothing(t *testing.T) {
	store := newStubStore()
	seedSnapshot(store, repository.ResourceUsers, 1, testNow, `{"id":1,"name":"Ann"}`)

	report, err := newTestRestore(store).Run(context.Background(), RestoreOptions{
		Scope:         "users",
		DryRun:        true,
		TruncateFirst: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Restored[repository.ResourceUsers] != 1 {
		t.Fatalf("dry run must still count, got %+v", report.Restored)
	}
	if len(store.users) != 0 {
		t.Fatalf("dry run must not write rows")
	}
	if len(store.truncated) != 0 {
		t.Fatalf("dry run must not truncate")
	}
}

func TestRestoreTruncateFirstOnlyScopedTables(t *testing.T) {
	store := newStubStore()
	keep := "still here"
	store.macros[9] = models.Macro{ID: 9, Title: &keep}
	stale := "stale"
	store.users[99] = models.User{ID: 99, Name: &stale}
	seedSnapshot(store, repository.ResourceUsers, 1, testNow, `{"id":1,"name":"Ann"}`)

	if _, err := newTestRestore(store).Run(context.Background(), RestoreOptions{
		Scope:         "users",
		TruncateFirst: true,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := store.users[99]; ok {
		t.Fatalf("stale user row must be truncated before restore")
	}
	if _, ok := store.users[1]; !ok {
		t.Fatalf("snapshot row not restored after truncate")
	}
	if _, ok := store.macros[9]; !ok {
		t.Fatalf("tables outside scope must not be truncated")
	}
}

func TestRestoreLimitWindowTakesNewestFirst(t *testing.T) {
	store := newStubStore()
	seedSnapshot(store, repository.ResourceUsers, 1, testNow.Add(-2*time.Hour), `{"id":1,"name":"older"}`)
	seedSnapshot(store, repository.ResourceUsers, 2, testNow, `{"id":2,"name":"newest"}`)

	report, err := newTestRestore(store).Run(context.Background(), RestoreOptions{Scope: "users", Limit: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Restored[repository.ResourceUsers] != 1 {
		t.Fatalf("restored = %d, want 1", report.Restored[repository.ResourceUsers])
	}
	if _, ok := store.users[2]; !ok {
		t.Fatalf("limit window must start from the newest snapshot")
	}
	if _, ok := store.users[1]; ok {
		t.Fatalf("older snapshot outside the window must not be restored")
	}
}
