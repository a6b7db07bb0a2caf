package gormrepository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketmirror/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) GetSyncState(ctx context.Context, resource string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).
		Where("resource = ?", resource).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor_token",
			"updated_at",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).
		Order("resource asc").
		Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (s *Store) UpsertRawSnapshotTx(ctx context.Context, tx *gorm.DB, snap *models.RawSnapshot) error {
	if snap == nil {
		return nil
	}
	return s.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at",
			"payload",
		}),
	}).Create(snap).Error
}

// ListRawSnapshots returns raw rows for a resource most-recent first by
// the source update time, NULLs last, entity id descending as tie-break.
// limit <= 0 means no limit.
func (s *Store) ListRawSnapshots(ctx context.Context, resource string, limit, offset int) ([]models.RawSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.RawSnapshot{}).
		Where("resource = ?", resource).
		Order("updated_at DESC NULLS LAST, entity_id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []models.RawSnapshot
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) UpsertUserTx(ctx context.Context, tx *gorm.DB, item *models.User) error {
	return s.upsertByID(ctx, tx, item, []string{
		"name", "email", "role", "role_type", "active", "suspended",
		"organization_id", "phone", "locale", "time_zone",
		"created_at", "updated_at", "last_login_at",
		"tags_json", "user_fields_json", "photo_json",
	})
}

func (s *Store) UpsertOrganizationTx(ctx context.Context, tx *gorm.DB, item *models.Organization) error {
	return s.upsertByID(ctx, tx, item, []string{
		"name", "external_id", "group_id", "details", "notes",
		"shared_tickets", "shared_comments",
		"domain_names_json", "tags_json", "organization_fields_json",
		"created_at", "updated_at",
	})
}

func (s *Store) UpsertTicketTx(ctx context.Context, tx *gorm.DB, item *models.Ticket) error {
	return s.upsertByID(ctx, tx, item, []string{
		"subject", "description", "status", "priority", "type",
		"requester_id", "assignee_id", "organization_id",
		"created_at", "updated_at", "due_at",
	})
}

func (s *Store) UpsertTicketCommentTx(ctx context.Context, tx *gorm.DB, item *models.TicketComment) error {
	return s.upsertByID(ctx, tx, item, []string{
		"ticket_id", "author_id", "public", "body",
		"created_at", "updated_at",
	})
}

func (s *Store) UpsertAttachmentTx(ctx context.Context, tx *gorm.DB, item *models.Attachment) error {
	return s.upsertByID(ctx, tx, item, []string{
		"ticket_id", "comment_id", "file_name", "content_url",
		"local_path", "content_type", "size", "thumbnails_json",
		"created_at",
	})
}

func (s *Store) UpsertViewTx(ctx context.Context, tx *gorm.DB, item *models.View) error {
	return s.upsertByID(ctx, tx, item, []string{
		"title", "description", "active", "position", "default_view",
		"restriction_json", "execution_json", "conditions_json",
		"created_at", "updated_at",
	})
}

func (s *Store) UpsertTriggerTx(ctx context.Context, tx *gorm.DB, item *models.Trigger) error {
	return s.upsertByID(ctx, tx, item, []string{
		"title", "description", "active", "position", "category_id",
		"raw_title", "default_trigger", "conditions_json", "actions_json",
		"created_at", "updated_at",
	})
}

func (s *Store) UpsertTriggerCategoryTx(ctx context.Context, tx *gorm.DB, item *models.TriggerCategory) error {
	return s.upsertByID(ctx, tx, item, []string{
		"name", "position", "created_at", "updated_at",
	})
}

func (s *Store) UpsertMacroTx(ctx context.Context, tx *gorm.DB, item *models.Macro) error {
	return s.upsertByID(ctx, tx, item, []string{
		"title", "description", "active", "position", "default_macro",
		"restriction_json", "actions_json", "created_at", "updated_at",
	})
}

func (s *Store) DeleteTicketCascade(ctx context.Context, ticketID int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", ticketID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", ticketID).Delete(&models.TicketComment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", ticketID).Delete(&models.Ticket{}).Error
	})
}

func (s *Store) TruncateTables(ctx context.Context, tables []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(`TRUNCATE TABLE %q RESTART IDENTITY CASCADE`, table)
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *Store) upsertByID(ctx context.Context, tx *gorm.DB, item any, columns []string) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(item).Error
}
