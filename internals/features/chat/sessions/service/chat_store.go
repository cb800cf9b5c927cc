package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"orderkue_backend/internals/features/chat/sessions/dto"
	"orderkue_backend/internals/features/chat/sessions/model"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
	"orderkue_backend/internals/helpers/apperr"
)

// ChatStore: akses sesi & pesan chat.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

/* ===================== Create (dipakai checkout/webhook) ===================== */

func (s *ChatStore) CreateSession(ctx context.Context, sess *model.ChatSessionModel) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

// AppendSystemMessage menulis pesan atas nama staff. Dipanggil di dalam
// transaksi pemanggil (tidak membuka transaksi sendiri).
func (s *ChatStore) AppendSystemMessage(ctx context.Context, sess *model.ChatSessionModel, staffID, text string) (*model.ChatMessageModel, error) {
	msg := &model.ChatMessageModel{
		SessionID:  sess.SessionID,
		SenderType: model.SenderStaff,
		SenderID:   staffID,
		Message:    &text,
	}
	if err := s.insertAndTouch(ctx, s.db, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

/* ===================== Lookups ===================== */

func (s *ChatStore) FindSession(ctx context.Context, sessionID uuid.UUID) (*model.ChatSessionModel, error) {
	var sess model.ChatSessionModel
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Session not found")
	}
	if err != nil {
		return nil, apperr.Storage("Gagal mengambil sesi chat", err)
	}
	return &sess, nil
}

// FindSessionByOrderCode mengembalikan nil, nil kalau order belum/tidak punya sesi.
func (s *ChatStore) FindSessionByOrderCode(ctx context.Context, orderCode string) (*model.ChatSessionModel, error) {
	var rows []model.ChatSessionModel
	if err := s.db.WithContext(ctx).Where("order_code = ?", orderCode).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find session by order code: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *ChatStore) OrderCodesByPhone(ctx context.Context, phone string) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&orderModel.OrderModel{}).
		Where("customer_phone = ?", strings.TrimSpace(phone)).
		Order("created_at ASC").
		Pluck("order_code", &codes).Error
	if err != nil {
		return nil, apperr.Storage("Gagal mengambil pesanan", err)
	}
	return codes, nil
}

func (s *ChatStore) SessionsByOrderCodes(ctx context.Context, codes []string) ([]model.ChatSessionModel, error) {
	var sessions []model.ChatSessionModel
	if len(codes) == 0 {
		return sessions, nil
	}
	err := s.db.WithContext(ctx).
		Where("order_code IN ?", codes).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, apperr.Storage("Gagal mengambil sesi chat", err)
	}
	return sessions, nil
}

// MessagesForSessions: seluruh pesan, urut created_at naik.
func (s *ChatStore) MessagesForSessions(ctx context.Context, sessionIDs []uuid.UUID) ([]model.ChatMessageModel, error) {
	var msgs []model.ChatMessageModel
	if len(sessionIDs) == 0 {
		return msgs, nil
	}
	err := s.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperr.Storage("Gagal mengambil pesan", err)
	}
	return msgs, nil
}

/* ===================== List projections ===================== */

// ListStaffSessions: semua sesi untuk dashboard staff, unread = pesan buyer yang belum dibaca.
func (s *ChatStore) ListStaffSessions(ctx context.Context) ([]dto.SessionSummary, error) {
	var sessions []model.ChatSessionModel
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, apperr.Storage("Gagal mengambil sesi chat", err)
	}
	out, err := s.summarize(ctx, sessions, model.SenderStaff)
	if err != nil {
		return nil, err
	}

	orderIDs := make([]uuid.UUID, 0, len(sessions))
	for _, ss := range sessions {
		orderIDs = append(orderIDs, ss.OrderID)
	}
	var orders []orderModel.OrderModel
	if len(orderIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Select("order_id", "customer_name", "customer_phone").
			Where("order_id IN ?", orderIDs).
			Find(&orders).Error; err != nil {
			return nil, apperr.Storage("Gagal mengambil data pesanan", err)
		}
	}
	byID := make(map[uuid.UUID]orderModel.OrderModel, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o
	}
	for i := range out {
		if o, ok := byID[out[i].OrderID]; ok {
			out[i].CustomerName = o.CustomerName
			out[i].CustomerPhone = o.CustomerPhone
		}
	}
	return out, nil
}

// ListBuyerSessions: sesi milik nomor HP tertentu, unread = pesan staff yang belum dibaca.
func (s *ChatStore) ListBuyerSessions(ctx context.Context, phone string, staffOnline bool) ([]dto.SessionSummary, error) {
	codes, err := s.OrderCodesByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	sessions, err := s.SessionsByOrderCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	out, err := s.summarize(ctx, sessions, model.SenderBuyer)
	if err != nil {
		return nil, err
	}
	for i := range out {
		online := staffOnline
		out[i].StaffOnline = &online
	}
	return out, nil
}

func (s *ChatStore) summarize(ctx context.Context, sessions []model.ChatSessionModel, reader model.SenderType) ([]dto.SessionSummary, error) {
	out := make([]dto.SessionSummary, 0, len(sessions))
	if len(sessions) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, ss := range sessions {
		ids = append(ids, ss.SessionID)
	}

	type unreadRow struct {
		SessionID uuid.UUID
		Cnt       int64
	}
	var rows []unreadRow
	if err := s.db.WithContext(ctx).
		Model(&model.ChatMessageModel{}).
		Select("session_id, COUNT(*) AS cnt").
		Where("session_id IN ? AND sender_type = ? AND read_at IS NULL", ids, reader.Counterpart()).
		Group("session_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("Gagal menghitung pesan belum dibaca", err)
	}
	unread := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		unread[r.SessionID] = r.Cnt
	}

	for _, ss := range sessions {
		var last []model.ChatMessageModel
		if err := s.db.WithContext(ctx).
			Where("session_id = ?", ss.SessionID).
			Order("created_at DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return nil, apperr.Storage("Gagal mengambil pesan terakhir", err)
		}
		item := dto.SessionSummary{
			SessionID:       ss.SessionID,
			OrderID:         ss.OrderID,
			OrderCode:       ss.OrderCode,
			AssignedStaffID: ss.AssignedStaffID,
			UnreadCount:     unread[ss.SessionID],
			CreatedAt:       ss.CreatedAt,
			UpdatedAt:       ss.UpdatedAt,
		}
		if len(last) > 0 {
			item.LastMessage = &last[0]
		}
		out = append(out, item)
	}
	return out, nil
}

/* ===================== Detail + history ===================== */

// GetSessionWithHistory memuat sesi + seluruh pesan, sekaligus menandai pesan
// lawan bicara (relatif terhadap reader) sebagai sudah dibaca.
func (s *ChatStore) GetSessionWithHistory(ctx context.Context, orderCode string, reader model.SenderType) (*model.ChatSessionModel, error) {
	var sess model.ChatSessionModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_code = ?", orderCode).First(&sess).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ChatMessageModel{}).
			Where("session_id = ? AND sender_type = ? AND read_at IS NULL", sess.SessionID, reader.Counterpart()).
			Update("read_at", time.Now()).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sess.SessionID).Order("created_at ASC").Find(&sess.Messages).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Chat session not found")
	}
	if err != nil {
		return nil, apperr.Storage("Gagal mengambil sesi chat", err)
	}
	return &sess, nil
}

/* ===================== Append / mark read ===================== */

// AppendMessage: cek sesi, simpan pesan, bump updated_at sesi; satu transaksi.
// Row yang dikembalikan siap di-broadcast oleh pemanggil.
func (s *ChatStore) AppendMessage(ctx context.Context, req dto.CreateMessageRequest) (*model.ChatMessageModel, *model.ChatSessionModel, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, apperr.Validation(err.Error())
	}
	msg := req.ToModel()
	var sess model.ChatSessionModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", req.SessionID).First(&sess).Error; err != nil {
			return err
		}
		return s.insertAndTouch(ctx, tx, msg)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFound("Session not found")
	}
	if err != nil {
		return nil, nil, apperr.Storage("Gagal menyimpan pesan", err)
	}
	return msg, &sess, nil
}

func (s *ChatStore) insertAndTouch(ctx context.Context, tx *gorm.DB, msg *model.ChatMessageModel) error {
	if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	if err := tx.WithContext(ctx).
		Model(&model.ChatSessionModel{}).
		Where("session_id = ?", msg.SessionID).
		Update("updated_at", msg.CreatedAt).Error; err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}
	return nil
}

// MarkRead menandai pesan lawan bicara reader sebagai dibaca. read_at hanya
// diisi untuk baris yang masih null.
func (s *ChatStore) MarkRead(ctx context.Context, sessionID uuid.UUID, reader model.SenderType) (int64, *model.ChatSessionModel, error) {
	if !reader.Valid() {
		return 0, nil, apperr.Validation("user_type harus admin atau buyer")
	}
	sess, err := s.FindSession(ctx, sessionID)
	if err != nil {
		return 0, nil, err
	}
	res := s.db.WithContext(ctx).
		Model(&model.ChatMessageModel{}).
		Where("session_id = ? AND sender_type = ? AND read_at IS NULL", sessionID, reader.Counterpart()).
		Update("read_at", time.Now())
	if res.Error != nil {
		return 0, nil, apperr.Storage("Gagal menandai pesan", res.Error)
	}
	return res.RowsAffected, sess, nil
}

/* ===================== Cleanup ===================== */

// DeleteSessionByOrderID menghapus sesi + pesannya. false kalau sesi sudah tidak ada.
func (s *ChatStore) DeleteSessionByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessions []model.ChatSessionModel
		if err := tx.Where("order_id = ?", orderID).Find(&sessions).Error; err != nil {
			return err
		}
		if len(sessions) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(sessions))
		for _, ss := range sessions {
			ids = append(ids, ss.SessionID)
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&model.ChatMessageModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("session_id IN ?", ids).Delete(&model.ChatSessionModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete chat session for order %s: %w", orderID, err)
	}
	if deleted {
		log.WithField("order_id", orderID).Info("chat session deleted")
	}
	return deleted, nil
}

// ReceivedOrdersWithSessions: order berstatus Diterima yang sesinya masih ada
// dan terakhir di-update sebelum `before`.
func (s *ChatStore) ReceivedOrdersWithSessions(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Table("chat_sessions AS cs").
		Joins("JOIN orders o ON o.order_id = cs.order_id").
		Where("o.status = ? AND o.updated_at < ?", orderModel.StatusReceived, before).
		Pluck("cs.order_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list received orders: %w", err)
	}
	return ids, nil
}
