package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID             int64          `gorm:"primaryKey;comment:用户唯一标识"`
	Name           *string        `gorm:"type:text;comment:姓名"`
	Email          *string        `gorm:"type:text;comment:邮箱"`
	Role           *string        `gorm:"type:text;comment:角色"`
	RoleType       *int           `gorm:"comment:角色类型"`
	Active         bool           `gorm:"not null;default:false;comment:是否活跃"`
	Suspended      bool           `gorm:"not null;default:false;comment:是否停用"`
	OrganizationID *int64         `gorm:"index;comment:关联组织ID"`
	Phone          *string        `gorm:"type:text;comment:电话"`
	Locale         *string        `gorm:"type:text;comment:语言区域"`
	TimeZone       *string        `gorm:"type:text;comment:时区"`
	CreatedAt      *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt      *time.Time     `gorm:"type:timestamptz;index;comment:外部更新时间"`
	LastLoginAt    *time.Time     `gorm:"type:timestamptz;comment:最近登录时间"`
	TagsJSON       datatypes.JSON `gorm:"type:jsonb;comment:标签列表"`
	UserFieldsJSON datatypes.JSON `gorm:"type:jsonb;comment:自定义字段"`
	PhotoJSON      datatypes.JSON `gorm:"type:jsonb;comment:头像信息"`
}

func (User) TableName() string {
	return "users"
}
