package service

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ticketmirror/internal/client/zendesk"
	"ticketmirror/internal/models"
	"ticketmirror/internal/repository"
)

// snapshotIDModulus bounds hashed raw-snapshot keys to 15 decimal digits,
// keeping them inside the same range as native numeric IDs.
const snapshotIDModulus = int64(1e15)

// EntityWriter is the single write path for one decoded entity: it builds
// the structured projection and the raw snapshot and persists both in one
// transaction, so the two stores never diverge past the scope of a retry.
// The raw snapshot's update time is the source system's own timestamp.
type EntityWriter struct {
	Store repository.MirrorStore
}

func rawSnapshot(resource string, entityID int64, updatedAt zendesk.Timestamp, payload []byte) *models.RawSnapshot {
	return &models.RawSnapshot{
		Resource:  resource,
		EntityID:  entityID,
		UpdatedAt: tsPtr(updatedAt),
		Payload:   datatypes.JSON(payload),
	}
}

func (w *EntityWriter) WriteUser(ctx context.Context, u *zendesk.User) error {
	row := models.User{
		ID:             u.ID,
		Name:           strPtr(u.Name),
		Email:          strPtr(u.Email),
		Role:           strPtr(u.Role),
		RoleType:       u.RoleType,
		Active:         u.Active,
		Suspended:      u.Suspended,
		OrganizationID: u.OrganizationID,
		Phone:          strPtr(u.Phone),
		Locale:         strPtr(u.Locale),
		TimeZone:       strPtr(u.TimeZone),
		CreatedAt:      tsPtr(u.CreatedAt),
		UpdatedAt:      tsPtr(u.UpdatedAt),
		LastLoginAt:    tsPtr(u.LastLoginAt),
		TagsJSON:       jsonOrDefault(u.Tags, "[]"),
		UserFieldsJSON: jsonOrDefault(u.UserFields, "{}"),
		PhotoJSON:      jsonOrDefault(u.Photo, "{}"),
	}
	snap := rawSnapshot(repository.ResourceUsers, u.ID, u.UpdatedAt, u.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertUserTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteOrganization(ctx context.Context, o *zendesk.Organization) error {
	row := models.Organization{
		ID:              o.ID,
		Name:            strPtr(o.Name),
		ExternalID:      strPtr(o.ExternalID),
		GroupID:         o.GroupID,
		Details:         strPtr(o.Details),
		Notes:           strPtr(o.Notes),
		SharedTickets:   boolPtr(o.SharedTickets),
		SharedComments:  boolPtr(o.SharedComments),
		DomainNamesJSON: jsonOrDefault(o.DomainNames, "[]"),
		TagsJSON:        jsonOrDefault(o.Tags, "[]"),
		OrgFieldsJSON:   jsonOrDefault(o.OrganizationFields, "{}"),
		CreatedAt:       tsPtr(o.CreatedAt),
		UpdatedAt:       tsPtr(o.UpdatedAt),
	}
	snap := rawSnapshot(repository.ResourceOrganizations, o.ID, o.UpdatedAt, o.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertOrganizationTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteTicket(ctx context.Context, t *zendesk.Ticket) error {
	row := models.Ticket{
		ID:             t.ID,
		Subject:        strPtr(t.Subject),
		Description:    strPtr(t.Description),
		Status:         strPtr(t.Status),
		Priority:       strPtr(t.Priority),
		Type:           strPtr(t.Type),
		RequesterID:    t.RequesterID,
		AssigneeID:     t.AssigneeID,
		OrganizationID: t.OrganizationID,
		CreatedAt:      tsPtr(t.CreatedAt),
		UpdatedAt:      tsPtr(t.UpdatedAt),
		DueAt:          tsPtr(t.DueAt),
	}
	snap := rawSnapshot(repository.ResourceTickets, t.ID, t.UpdatedAt, t.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertTicketTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteComment(ctx context.Context, ticketID int64, c *zendesk.Comment) error {
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = c.CreatedAt
	}
	row := models.TicketComment{
		ID:        c.ID,
		TicketID:  ticketID,
		AuthorID:  c.AuthorID,
		Public:    c.Public,
		Body:      strPtr(c.Body),
		CreatedAt: tsPtr(c.CreatedAt),
		UpdatedAt: tsPtr(updated),
	}
	snap := rawSnapshot(repository.ResourceComments, c.ID, updated, c.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertTicketCommentTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

// WriteAttachment persists attachment metadata regardless of whether the
// blob download produced a local path; localPath == "" records NULL.
func (w *EntityWriter) WriteAttachment(ctx context.Context, ticketID, commentID int64, a *zendesk.Attachment, localPath string) error {
	row := models.Attachment{
		ID:             a.ID,
		TicketID:       int64Ptr(ticketID),
		CommentID:      int64Ptr(commentID),
		FileName:       strPtr(a.FileName),
		ContentURL:     strPtr(a.ContentURL),
		LocalPath:      strPtr(localPath),
		ContentType:    strPtr(a.ContentType),
		Size:           a.Size,
		ThumbnailsJSON: jsonOrDefault(a.Thumbnails, "[]"),
		CreatedAt:      tsPtr(a.CreatedAt),
	}
	snap := rawSnapshot(repository.ResourceAttachments, a.ID, a.CreatedAt, a.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertAttachmentTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteView(ctx context.Context, v *zendesk.View) error {
	row := models.View{
		ID:              v.ID,
		Title:           strPtr(v.Title),
		Description:     strPtr(v.Description),
		Active:          v.Active,
		Position:        v.Position,
		DefaultView:     boolPtr(v.Default),
		RestrictionJSON: jsonOrDefault(v.Restriction, "null"),
		ExecutionJSON:   jsonOrDefault(v.Execution, "null"),
		ConditionsJSON:  jsonOrDefault(v.Conditions, "null"),
		CreatedAt:       tsPtr(v.CreatedAt),
		UpdatedAt:       tsPtr(v.UpdatedAt),
	}
	snap := rawSnapshot(repository.ResourceViews, v.ID, v.UpdatedAt, v.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertViewTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteTrigger(ctx context.Context, t *zendesk.Trigger) error {
	row := models.Trigger{
		ID:             t.ID,
		Title:          strPtr(t.Title),
		Description:    strPtr(t.Description),
		Active:         t.Active,
		Position:       t.Position,
		CategoryID:     strPtr(t.CategoryID.String()),
		RawTitle:       strPtr(t.RawTitle),
		DefaultTrigger: boolPtr(t.Default),
		ConditionsJSON: jsonOrDefault(t.Conditions, "{}"),
		ActionsJSON:    jsonOrDefault(t.Actions, "[]"),
		CreatedAt:      tsPtr(t.CreatedAt),
		UpdatedAt:      tsPtr(t.UpdatedAt),
	}
	snap := rawSnapshot(repository.ResourceTriggers, t.ID, t.UpdatedAt, t.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertTriggerTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteTriggerCategory(ctx context.Context, c *zendesk.TriggerCategory) error {
	row := models.TriggerCategory{
		ID:        c.ID.String(),
		Name:      strPtr(c.Name),
		Position:  c.Position,
		CreatedAt: tsPtr(c.CreatedAt),
		UpdatedAt: tsPtr(c.UpdatedAt),
	}
	snap := rawSnapshot(repository.ResourceTriggerCategories, SnapshotEntityID(c.ID), c.UpdatedAt, c.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertTriggerCategoryTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

func (w *EntityWriter) WriteMacro(ctx context.Context, m *zendesk.Macro) error {
	row := models.Macro{
		ID:              m.ID,
		Title:           strPtr(m.Title),
		Description:     strPtr(m.Description),
		Active:          m.Active,
		Position:        m.Position,
		DefaultMacro:    boolPtr(m.Default),
		RestrictionJSON: jsonOrDefault(m.Restriction, "null"),
		ActionsJSON:     jsonOrDefault(m.Actions, "[]"),
		CreatedAt:       tsPtr(m.CreatedAt),
		UpdatedAt:       tsPtr(m.UpdatedAt),
	}
	snap := rawSnapshot(repository.ResourceMacros, m.ID, m.UpdatedAt, m.Raw)
	return w.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := w.Store.UpsertMacroTx(ctx, tx, &row); err != nil {
			return err
		}
		return w.Store.UpsertRawSnapshotTx(ctx, tx, snap)
	})
}

// SnapshotEntityID maps a string entity ID into the numeric raw-snapshot
// key space. Numeric IDs map to themselves; anything else gets a stable
// FNV-64a hash reduced mod 1e15. The hash is part of the raw-snapshot
// keying contract: the same string always yields the same key.
func SnapshotEntityID(id zendesk.StringID) int64 {
	if n, ok := id.Int64(); ok {
		return n
	}
	h := fnv.New64a()
	h.Write([]byte(id.String()))
	n := int64(h.Sum64() % uint64(snapshotIDModulus))
	if n < 0 {
		n = -n
	}
	return n
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func boolPtr(v bool) *bool {
	return &v
}

func int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

// tsPtr normalizes a source timestamp to a UTC instant, nil when unset.
func tsPtr(ts zendesk.Timestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.Time().UTC()
	return &t
}

// jsonOrDefault keeps the payload's own document when present and falls
// back to an empty container so document columns are never NULL.
func jsonOrDefault(raw []byte, def string) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		if def == "null" {
			return datatypes.JSON([]byte("null"))
		}
		return datatypes.JSON([]byte(def))
	}
	return datatypes.JSON(raw)
}
