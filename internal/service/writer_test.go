package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ticketmirror/internal/client/zendesk"
	"ticketmirror/internal/repository"
)

func decodeEntity(t *testing.T, payload string, out any) {
	t.Helper()
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

func TestWriteUserStoresRowAndSnapshot(t *testing.T) {
	store := newStubStore()
	w := &EntityWriter{Store: store}

	payload := `{"id":101,"name":"Ann","email":"ann@example.com","role":"agent","active":true,"created_at":"2026-01-02T10:00:00Z","updated_at":"2026-01-03T11:30:00+02:00","tags":["vip"],"user_fields":{"plan":"gold"}}`
	var u zendesk.User
	decodeEntity(t, payload, &u)

	if err := w.WriteUser(context.Background(), &u); err != nil {
		t.Fatalf("WriteUser: %v", err)
	}

	row, ok := store.users[101]
	if !ok {
		t.Fatalf("user row not written")
	}
	if row.Name == nil || *row.Name != "Ann" {
		t.Fatalf("unexpected name: %v", row.Name)
	}
	if string(row.TagsJSON) != `["vip"]` {
		t.Fatalf("unexpected tags: %s", row.TagsJSON)
	}
	if row.UpdatedAt == nil || row.UpdatedAt.Location() != time.UTC {
		t.Fatalf("updated_at not normalized to UTC: %v", row.UpdatedAt)
	}
	want := time.Date(2026, 1, 3, 9, 30, 0, 0, time.UTC)
	if !row.UpdatedAt.Equal(want) {
		t.Fatalf("updated_at = %v, want %v", row.UpdatedAt, want)
	}

	snap, ok := store.snapshots[repository.ResourceUsers][101]
	if !ok {
		t.Fatalf("raw snapshot not written")
	}
	if snap.UpdatedAt == nil || !snap.UpdatedAt.Equal(want) {
		t.Fatalf("snapshot carries write time instead of source time: %v", snap.UpdatedAt)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(snap.Payload, &roundTrip); err != nil {
		t.Fatalf("snapshot payload not valid JSON: %v", err)
	}
	if roundTrip["email"] != "ann@example.com" {
		t.Fatalf("snapshot payload lost fields: %v", roundTrip)
	}
}

func TestWriteUserEmptyContainersGetDefaults(t *testing.T) {
	store := newStubStore()
	w := &EntityWriter{Store: store}

	var u zendesk.User
	decodeEntity(t, `{"id":7,"name":"","tags":null}`, &u)
	if err := w.WriteUser(context.Background(), &u); err != nil {
		t.Fatalf("WriteUser: %v", err)
	}

	row := store.users[7]
	if row.Name != nil {
		t.Fatalf("blank name should store NULL, got %q", *row.Name)
	}
	if string(row.TagsJSON) != "[]" {
		t.Fatalf("null tags should default to [], got %s", row.TagsJSON)
	}
	if string(row.UserFieldsJSON) != "{}" {
		t.Fatalf("missing user_fields should default to {}, got %s", row.UserFieldsJSON)
	}
	if row.UpdatedAt != nil {
		t.Fatalf("missing updated_at should store NULL, got %v", row.UpdatedAt)
	}
}

func TestWriteCommentUpdatedFallsBackToCreated(t *testing.T) {
	store := newStubStore()
	w := &EntityWriter{Store: store}

	var c zendesk.Comment
	decodeEntity(t, `{"id":55,"body":"hello","created_at":"2026-02-01T00:00:00Z"}`, &c)
	if err := w.WriteComment(context.Background(), 900, &c); err != nil {
		t.Fatalf("WriteComment: %v", err)
	}

	row := store.comments[55]
	if row.TicketID != 900 {
		t.Fatalf("ticket id = %d, want 900", row.TicketID)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if row.UpdatedAt == nil || !row.UpdatedAt.Equal(want) {
		t.Fatalf("updated_at should fall back to created_at, got %v", row.UpdatedAt)
	}
	snap := store.snapshots[repository.ResourceComments][55]
	if snap.UpdatedAt == nil || !snap.UpdatedAt.Equal(want) {
		t.Fatalf("snapshot timestamp should fall back to created_at, got %v", snap.UpdatedAt)
	}
}

func TestWriteAttachmentKeepsMetadataWithoutLocalPath(t *testing.T) {
	store := newStubStore()
	w := &EntityWriter{Store: store}

	var a zendesk.Attachment
	decodeEntity(t, `{"id":12,"file_name":"log.txt","content_url":"https://cdn.example.com/log.txt","size":42}`, &a)
	if err := w.WriteAttachment(context.Background(), 900, 55, &a, ""); err != nil {
		t.Fatalf("WriteAttachment: %v", err)
	}

	row := store.attachments[12]
	if row.LocalPath != nil {
		t.Fatalf("empty local path should store NULL, got %q", *row.LocalPath)
	}
	if row.ContentURL == nil || *row.ContentURL != "https://cdn.example.com/log.txt" {
		t.Fatalf("content url missing: %v", row.ContentURL)
	}
	if row.TicketID == nil || *row.TicketID != 900 || row.CommentID == nil || *row.CommentID != 55 {
		t.Fatalf("attachment parent links missing: %v %v", row.TicketID, row.CommentID)
	}
}

func TestWriteTriggerCategoryNonNumericID(t *testing.T) {
	store := newStubStore()
	w := &EntityWriter{Store: store}

	var c zendesk.TriggerCategory
	decodeEntity(t, `{"id":"cat-notify","name":"Notifications","updated_at":"2026-03-01T00:00:00Z"}`, &c)
	if err := w.WriteTriggerCategory(context.Background(), &c); err != nil {
		t.Fatalf("WriteTriggerCategory: %v", err)
	}

	if _, ok := store.categories["cat-notify"]; !ok {
		t.Fatalf("category row keyed by original string ID not written")
	}
	hashed := SnapshotEntityID("cat-notify")
	if _, ok := store.snapshots[repository.ResourceTriggerCategories][hashed]; !ok {
		t.Fatalf("snapshot not keyed by hashed ID %d", hashed)
	}
}

func TestSnapshotEntityID(t *testing.T) {
	if got := SnapshotEntityID("12345"); got != 12345 {
		t.Fatalf("numeric ID should map to itself, got %d", got)
	}
	a := SnapshotEntityID("cat-notify")
	b := SnapshotEntityID("cat-notify")
	if a != b {
		t.Fatalf("hash not stable: %d vs %d", a, b)
	}
	if a < 0 || a >= snapshotIDModulus {
		t.Fatalf("hashed ID %d outside key space", a)
	}
	if SnapshotEntityID("cat-notify") == SnapshotEntityID("cat-routing") {
		t.Fatalf("distinct strings should not collide in this test set")
	}
}
