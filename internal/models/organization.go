package models

import (
	"time"

	"gorm.io/datatypes"
)

type Organization struct {
	ID               int64          `gorm:"primaryKey;comment:组织唯一标识"`
	Name             *string        `gorm:"type:text;comment:组织名称"`
	ExternalID       *string        `gorm:"type:text;comment:外部ID"`
	GroupID          *int64         `gorm:"comment:关联分组ID"`
	Details          *string        `gorm:"type:text;comment:详情"`
	Notes            *string        `gorm:"type:text;comment:备注"`
	SharedTickets    *bool          `gorm:"comment:是否共享工单"`
	SharedComments   *bool          `gorm:"comment:是否共享评论"`
	DomainNamesJSON  datatypes.JSON `gorm:"type:jsonb;comment:域名列表"`
	TagsJSON         datatypes.JSON `gorm:"type:jsonb;comment:标签列表"`
	OrgFieldsJSON    datatypes.JSON `gorm:"column:organization_fields_json;type:jsonb;comment:自定义字段"`
	CreatedAt        *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt        *time.Time     `gorm:"type:timestamptz;index;comment:外部更新时间"`
}

func (Organization) TableName() string {
	return "organizations"
}
