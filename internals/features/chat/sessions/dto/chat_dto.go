package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"orderkue_backend/internals/features/chat/sessions/model"
)

var validate = validator.New()

/* ===================== Requests ===================== */

type CreateMessageRequest struct {
	SessionID  uuid.UUID        `json:"session_id" validate:"required"`
	SenderType model.SenderType `json:"sender_type" validate:"required,oneof=admin buyer"`
	SenderID   string           `json:"sender_id" validate:"required,max=64"`
	Message    *string          `json:"message" validate:"omitempty,max=4000"`
	FileURL    *string          `json:"file_url" validate:"omitempty,url"`
	FileType   *string          `json:"file_type" validate:"omitempty,max=50"`
}

func (r *CreateMessageRequest) Normalize() {
	r.SenderID = strings.TrimSpace(r.SenderID)
	if r.Message != nil {
		s := strings.TrimSpace(*r.Message)
		if s == "" {
			r.Message = nil
		} else {
			r.Message = &s
		}
	}
	if r.FileURL != nil && strings.TrimSpace(*r.FileURL) == "" {
		r.FileURL = nil
	}
}

func (r *CreateMessageRequest) Validate() error {
	r.Normalize()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.SessionID == uuid.Nil {
		return errors.New("session_id wajib diisi")
	}
	if r.Message == nil && r.FileURL == nil {
		return errors.New("message atau file_url wajib diisi")
	}
	return nil
}

func (r *CreateMessageRequest) ToModel() *model.ChatMessageModel {
	return &model.ChatMessageModel{
		SessionID:  r.SessionID,
		SenderType: r.SenderType,
		SenderID:   r.SenderID,
		Message:    r.Message,
		FileURL:    r.FileURL,
		FileType:   r.FileType,
	}
}

type MarkReadRequest struct {
	UserType model.SenderType `json:"user_type" validate:"required,oneof=admin buyer"`
}

func (r *MarkReadRequest) Validate() error {
	return validate.Struct(r)
}

/* ===================== Responses ===================== */

// SessionSummary: proyeksi list sesi (pesan terakhir + jumlah belum dibaca).
type SessionSummary struct {
	SessionID       uuid.UUID               `json:"session_id"`
	OrderID         uuid.UUID               `json:"order_id"`
	OrderCode       string                  `json:"order_code"`
	AssignedStaffID string                  `json:"assigned_admin_id"`
	CustomerName    string                  `json:"customer_name,omitempty"`
	CustomerPhone   string                  `json:"customer_phone,omitempty"`
	LastMessage     *model.ChatMessageModel `json:"last_message"`
	UnreadCount     int64                   `json:"unread_count"`
	StaffOnline     *bool                   `json:"admin_online,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

type MarkReadResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Updated   int64     `json:"updated"`
}
