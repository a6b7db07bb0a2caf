package repository

import (
	"context"

	"gorm.io/gorm"

	"ticketmirror/internal/models"
)

// Resource names used as sync_state and raw_snapshots keys. Cursor token
// semantics are resource specific (server cursor string for users/tickets,
// epoch seconds for organizations/ticket_events) and must never be
// reinterpreted across resources.
const (
	ResourceUsers             = "users"
	ResourceOrganizations     = "organizations"
	ResourceTickets           = "tickets"
	ResourceTicketEvents      = "ticket_events"
	ResourceComments          = "comments"
	ResourceAttachments       = "attachments"
	ResourceViews             = "views"
	ResourceTriggers          = "triggers"
	ResourceTriggerCategories = "trigger_categories"
	ResourceMacros            = "macros"
)

type MirrorStore interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetSyncState(ctx context.Context, resource string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)

	UpsertRawSnapshotTx(ctx context.Context, tx *gorm.DB, snap *models.RawSnapshot) error
	ListRawSnapshots(ctx context.Context, resource string, limit, offset int) ([]models.RawSnapshot, error)

	UpsertUserTx(ctx context.Context, tx *gorm.DB, item *models.User) error
	UpsertOrganizationTx(ctx context.Context, tx *gorm.DB, item *models.Organization) error
	UpsertTicketTx(ctx context.Context, tx *gorm.DB, item *models.Ticket) error
	UpsertTicketCommentTx(ctx context.Context, tx *gorm.DB, item *models.TicketComment) error
	UpsertAttachmentTx(ctx context.Context, tx *gorm.DB, item *models.Attachment) error
	UpsertViewTx(ctx context.Context, tx *gorm.DB, item *models.View) error
	UpsertTriggerTx(ctx context.Context, tx *gorm.DB, item *models.Trigger) error
	UpsertTriggerCategoryTx(ctx context.Context, tx *gorm.DB, item *models.TriggerCategory) error
	UpsertMacroTx(ctx context.Context, tx *gorm.DB, item *models.Macro) error

	// DeleteTicketCascade removes a ticket together with its comments and
	// attachments; used by the reopened-ticket pruning path.
	DeleteTicketCascade(ctx context.Context, ticketID int64) error

	// TruncateTables empties structured tables ahead of a destructive
	// restore. Raw snapshots are never truncated here.
	TruncateTables(ctx context.Context, tables []string) error
}
