package db

import (
	"ticketmirror/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.SyncState{},
		&models.RawSnapshot{},
		&models.User{},
		&models.Organization{},
		&models.Ticket{},
		&models.TicketComment{},
		&models.Attachment{},
		&models.View{},
		&models.Trigger{},
		&models.TriggerCategory{},
		&models.Macro{},
	)
}
