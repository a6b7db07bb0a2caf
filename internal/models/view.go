package models

import (
	"time"

	"gorm.io/datatypes"
)

type View struct {
	ID              int64          `gorm:"primaryKey;comment:视图唯一标识"`
	Title           *string        `gorm:"type:text;comment:标题"`
	Description     *string        `gorm:"type:text;comment:描述"`
	Active          bool           `gorm:"not null;default:false;comment:是否活跃"`
	Position        *int           `gorm:"comment:排序位置"`
	DefaultView     *bool          `gorm:"comment:是否默认视图"`
	RestrictionJSON datatypes.JSON `gorm:"type:jsonb;comment:可见范围"`
	ExecutionJSON   datatypes.JSON `gorm:"type:jsonb;comment:执行定义"`
	ConditionsJSON  datatypes.JSON `gorm:"type:jsonb;comment:条件定义"`
	CreatedAt       *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt       *time.Time     `gorm:"type:timestamptz;comment:外部更新时间"`
}

func (View) TableName() string {
	return "views"
}
