package models

import (
	"time"

	"gorm.io/datatypes"
)

type Attachment struct {
	ID             int64          `gorm:"primaryKey;comment:附件唯一标识"`
	TicketID       *int64         `gorm:"index;comment:关联工单ID"`
	CommentID      *int64         `gorm:"index;comment:关联评论ID"`
	FileName       *string        `gorm:"type:text;comment:文件名"`
	ContentURL     *string        `gorm:"type:text;comment:下载地址"`
	LocalPath      *string        `gorm:"type:text;comment:本地存储路径"`
	ContentType    *string        `gorm:"type:text;comment:内容类型"`
	Size           *int64         `gorm:"comment:字节大小"`
	ThumbnailsJSON datatypes.JSON `gorm:"type:jsonb;comment:缩略图列表"`
	CreatedAt      *time.Time     `gorm:"type:timestamptz;comment:外部创建时间"`
}

func (Attachment) TableName() string {
	return "attachments"
}
