package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SenderType string

const (
	SenderStaff SenderType = "admin"
	SenderBuyer SenderType = "buyer"
)

func (s SenderType) Valid() bool {
	return s == SenderStaff || s == SenderBuyer
}

// Counterpart: jenis pengirim lawan bicara.
func (s SenderType) Counterpart() SenderType {
	if s == SenderStaff {
		return SenderBuyer
	}
	return SenderStaff
}

/* ===================== chat_sessions ===================== */

type ChatSessionModel struct {
	SessionID       uuid.UUID `gorm:"column:session_id;type:uuid;primaryKey" json:"session_id"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"order_id"`
	OrderCode       string    `gorm:"column:order_code;type:varchar(100);not null;index" json:"order_code"`
	AssignedStaffID string    `gorm:"column:assigned_admin_id;type:varchar(64)" json:"assigned_admin_id"`
	CreatedByDevice *string   `gorm:"column:created_by_device;type:text" json:"created_by_device,omitempty"`

	Messages []ChatMessageModel `gorm:"foreignKey:SessionID;references:SessionID" json:"messages,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ChatSessionModel) TableName() string { return "chat_sessions" }

func (s *ChatSessionModel) BeforeCreate(tx *gorm.DB) error {
	if s.SessionID == uuid.Nil {
		s.SessionID = uuid.New()
	}
	return nil
}

/* ===================== chat_messages ===================== */

type ChatMessageModel struct {
	MessageID  uuid.UUID  `gorm:"column:message_id;type:uuid;primaryKey" json:"message_id"`
	SessionID  uuid.UUID  `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	SenderType SenderType `gorm:"column:sender_type;type:varchar(10);not null" json:"sender_type"`
	SenderID   string     `gorm:"column:sender_id;type:varchar(64);not null" json:"sender_id"`
	Message    *string    `gorm:"column:message;type:text" json:"message,omitempty"`
	FileURL    *string    `gorm:"column:file_url;type:text" json:"file_url,omitempty"`
	FileType   *string    `gorm:"column:file_type;type:varchar(50)" json:"file_type,omitempty"`

	// null → timestamp, tidak pernah balik ke null
	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (ChatMessageModel) TableName() string { return "chat_messages" }

func (m *ChatMessageModel) BeforeCreate(tx *gorm.DB) error {
	if m.MessageID == uuid.Nil {
		m.MessageID = uuid.New()
	}
	return nil
}
