package models

import (
	"time"
)

type SyncState struct {
	Resource    string    `gorm:"primaryKey;type:text;comment:资源标识"`
	CursorToken string    `gorm:"type:text;not null;comment:分页游标"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;comment:最近推进时间"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
