package models

import (
	"time"

	"gorm.io/datatypes"
)

type Trigger struct {
	ID             int64          `gorm:"primaryKey;comment:触发器唯一标识"`
	Title          *string        `gorm:"type:text;comment:标题"`
	Description    *string        `gorm:"type:text;comment:描述"`
	Active         bool           `gorm:"not null;default:false;comment:是否活跃"`
	Position       *int           `gorm:"comment:排序位置"`
	CategoryID     *string        `gorm:"type:text;comment:关联分类ID"`
	RawTitle       *string        `gorm:"type:text;comment:原始标题"`
	DefaultTrigger *bool          `gorm:"comment:是否默认触发器"`
	ConditionsJSON datatypes.JSON `gorm:"type:jsonb;not null;comment:条件定义"`
	ActionsJSON    datatypes.JSON `gorm:"type:jsonb;not null;comment:动作定义"`
	CreatedAt      *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt      *time.Time     `gorm:"type:timestamptz;comment:外部更新时间"`
}

func (Trigger) TableName() string {
	return "triggers"
}
