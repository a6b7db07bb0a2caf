package models

import (
	"time"

	"gorm.io/datatypes"
)

type Macro struct {
	ID              int64          `gorm:"primaryKey;comment:宏唯一标识"`
	Title           *string        `gorm:"type:text;comment:标题"`
	Description     *string        `gorm:"type:text;comment:描述"`
	Active          bool           `gorm:"not null;default:false;comment:是否活跃"`
	Position        *int           `gorm:"comment:排序位置"`
	DefaultMacro    *bool          `gorm:"comment:是否默认宏"`
	RestrictionJSON datatypes.JSON `gorm:"type:jsonb;comment:可见范围"`
	ActionsJSON     datatypes.JSON `gorm:"type:jsonb;not null;comment:动作定义"`
	CreatedAt       *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt       *time.Time     `gorm:"type:timestamptz;comment:外部更新时间"`
}

func (Macro) TableName() string {
	return "macros"
}
