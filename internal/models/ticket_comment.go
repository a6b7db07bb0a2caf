package models

import (
	"time"
)

type TicketComment struct {
	ID        int64      `gorm:"primaryKey;comment:评论唯一标识"`
	TicketID  int64      `gorm:"index;not null;comment:关联工单ID"`
	AuthorID  *int64     `gorm:"comment:作者ID"`
	Public    bool       `gorm:"not null;default:false;comment:是否公开"`
	Body      *string    `gorm:"type:text;comment:内容"`
	CreatedAt *time.Time `gorm:"type:timestamptz;comment:外部创建时间"`
	UpdatedAt *time.Time `gorm:"type:timestamptz;comment:外部更新时间"`
}

func (TicketComment) TableName() string {
	return "ticket_comments"
}
