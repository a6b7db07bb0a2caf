package models

import (
	"time"
)

// TriggerCategory IDs arrive as strings from the source API. They are
// typically numeric but that is not guaranteed, so the primary key stays
// text and raw-snapshot keying goes through a stable hash instead.
type TriggerCategory struct {
	ID        string     `gorm:"primaryKey;type:text;comment:分类唯一标识"`
	Name      *string    `gorm:"type:text;comment:分类名称"`
	Position  *int       `gorm:"comment:排序位置"`
	CreatedAt *time.Time `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt *time.Time `gorm:"type:timestamptz;comment:外部更新时间"`
}

func (TriggerCategory) TableName() string {
	return "trigger_categories"
}
