package models

import (
	"time"
)

type Ticket struct {
	ID             int64      `gorm:"primaryKey;comment:工单唯一标识"`
	Subject        *string    `gorm:"type:text;comment:主题"`
	Description    *string    `gorm:"type:text;comment:描述"`
	Status         *string    `gorm:"type:text;index;comment:状态"`
	Priority       *string    `gorm:"type:text;comment:优先级"`
	Type           *string    `gorm:"type:text;comment:工单类型"`
	RequesterID    *int64     `gorm:"index;comment:请求人ID"`
	AssigneeID     *int64     `gorm:"index;comment:受理人ID"`
	OrganizationID *int64     `gorm:"index;comment:关联组织ID"`
	CreatedAt      *time.Time `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt      *time.Time `gorm:"type:timestamptz;index;comment:外部更新时间"`
	DueAt          *time.Time `gorm:"type:timestamptz;comment:到期时间"`
}

func (Ticket) TableName() string {
	return "tickets"
}
