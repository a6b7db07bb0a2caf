package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawSnapshot keeps the complete source payload per entity so structured
// tables can be rebuilt without talking to the remote API again. The
// updated_at column records the source system's own timestamp, not the
// local write time.
type RawSnapshot struct {
	Resource  string         `gorm:"primaryKey;type:text;comment:资源标识"`
	EntityID  int64          `gorm:"primaryKey;comment:实体ID"`
	UpdatedAt *time.Time     `gorm:"type:timestamptz;comment:来源更新时间"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null;comment:原始载荷"`
}

func (RawSnapshot) TableName() string {
	return "raw_snapshots"
}
