package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"ticketmirror/internal/models"
	"ticketmirror/internal/repository"
)

// stubStore is an in-memory MirrorStore for service tests.
type stubStore struct {
	syncStates  map[string]models.SyncState
	snapshots   map[string]map[int64]models.RawSnapshot
	users       map[int64]models.User
	orgs        map[int64]models.Organization
	tickets     map[int64]models.Ticket
	comments    map[int64]models.TicketComment
	attachments map[int64]models.Attachment
	views       map[int64]models.View
	triggers    map[int64]models.Trigger
	categories  map[string]models.TriggerCategory
	macros      map[int64]models.Macro

	deletedTickets []int64
	truncated      [][]string

	failUpserts bool
}

func newStubStore() *stubStore {
	return &stubStore{
		syncStates:  make(map[string]models.SyncState),
		snapshots:   make(map[string]map[int64]models.RawSnapshot),
		users:       make(map[int64]models.User),
		orgs:        make(map[int64]models.Organization),
		tickets:     make(map[int64]models.Ticket),
		comments:    make(map[int64]models.TicketComment),
		attachments: make(map[int64]models.Attachment),
		views:       make(map[int64]models.View),
		triggers:    make(map[int64]models.Trigger),
		categories:  make(map[string]models.TriggerCategory),
		macros:      make(map[int64]models.Macro),
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) GetSyncState(ctx context.Context, resource string) (*models.SyncState, error) {
	state, ok := s.syncStates[resource]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

func (s *stubStore) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	s.syncStates[state.Resource] = *state
	return nil
}

func (s *stubStore) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	var out []models.SyncState
	for _, state := range s.syncStates {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out, nil
}

func (s *stubStore) UpsertRawSnapshotTx(ctx context.Context, tx *gorm.DB, snap *models.RawSnapshot) error {
	if s.failUpserts {
		return fmt.Errorf("stub: upsert failure")
	}
	byID, ok := s.snapshots[snap.Resource]
	if !ok {
		byID = make(map[int64]models.RawSnapshot)
		s.snapshots[snap.Resource] = byID
	}
	byID[snap.EntityID] = *snap
	return nil
}

func (s *stubStore) ListRawSnapshots(ctx context.Context, resource string, limit, offset int) ([]models.RawSnapshot, error) {
	var out []models.RawSnapshot
	for _, snap := range s.snapshots[resource] {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.UpdatedAt == nil && b.UpdatedAt == nil:
		case a.UpdatedAt == nil:
			return false
		case b.UpdatedAt == nil:
			return true
		case !a.UpdatedAt.Equal(*b.UpdatedAt):
			return a.UpdatedAt.After(*b.UpdatedAt)
		}
		return a.EntityID > b.EntityID
	})
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) UpsertUserTx(ctx context.Context, tx *gorm.DB, item *models.User) error {
	if s.failUpserts {
		return fmt.Errorf("stub: upsert failure")
	}
	s.users[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertOrganizationTx(ctx context.Context, tx *gorm.DB, item *models.Organization) error {
	if s.failUpserts {
		return fmt.Errorf("stub: upsert failure")
	}
	s.orgs[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertTicketTx(ctx context.Context, tx *gorm.DB, item *models.Ticket) error {
	if s.failUpserts {
		return fmt.Errorf("stub: upsert failure")
	}
	s.tickets[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertTicketCommentTx(ctx context.Context, tx *gorm.DB, item *models.TicketComment) error {
	s.comments[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertAttachmentTx(ctx context.Context, tx *gorm.DB, item *models.Attachment) error {
	s.attachments[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertViewTx(ctx context.Context, tx *gorm.DB, item *models.View) error {
	s.views[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertTriggerTx(ctx context.Context, tx *gorm.DB, item *models.Trigger) error {
	s.triggers[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertTriggerCategoryTx(ctx context.Context, tx *gorm.DB, item *models.TriggerCategory) error {
	s.categories[item.ID] = *item
	return nil
}

func (s *stubStore) UpsertMacroTx(ctx context.Context, tx *gorm.DB, item *models.Macro) error {
	s.macros[item.ID] = *item
	return nil
}

func (s *stubStore) DeleteTicketCascade(ctx context.Context, ticketID int64) error {
	delete(s.tickets, ticketID)
	for id, c := range s.comments {
		if c.TicketID == ticketID {
			delete(s.comments, id)
		}
	}
	for id, a := range s.attachments {
		if a.TicketID != nil && *a.TicketID == ticketID {
			delete(s.attachments, id)
		}
	}
	s.deletedTickets = append(s.deletedTickets, ticketID)
	return nil
}

func (s *stubStore) TruncateTables(ctx context.Context, tables []string) error {
	s.truncated = append(s.truncated, tables)
	for _, table := range tables {
		switch table {
		case "users":
			s.users = make(map[int64]models.User)
		case "organizations":
			s.orgs = make(map[int64]models.Organization)
		case "tickets":
			s.tickets = make(map[int64]models.Ticket)
		case "views":
			s.views = make(map[int64]models.View)
		case "triggers":
			s.triggers = make(map[int64]models.Trigger)
		case "trigger_categories":
			s.categories = make(map[string]models.TriggerCategory)
		case "macros":
			s.macros = make(map[int64]models.Macro)
		}
	}
	return nil
}

var _ repository.MirrorStore = (*stubStore)(nil)
