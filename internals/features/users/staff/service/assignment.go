package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"orderkue_backend/internals/features/users/staff/model"
)

// AssignmentPolicy memilih satu staff pemilik sesi chat untuk order baru.
// tx boleh berupa transaksi yang sedang berjalan.
type AssignmentPolicy interface {
	ResolveStaff(ctx context.Context, tx *gorm.DB) (string, error)
}

// FirstActiveStaff: admin aktif paling awal dibuat; kalau belum ada admin sama sekali
// pakai FallbackID.
type FirstActiveStaff struct {
	FallbackID string
}

func NewFirstActiveStaff(fallbackID string) *FirstActiveStaff {
	return &FirstActiveStaff{FallbackID: fallbackID}
}

func (p *FirstActiveStaff) ResolveStaff(ctx context.Context, tx *gorm.DB) (string, error) {
	var u model.UserModel
	err := tx.WithContext(ctx).
		Where("LOWER(role) = ? AND is_active = ?", model.RoleAdmin, true).
		Order("created_at ASC").
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithField("fallback_id", p.FallbackID).Warn("no admin account found, using fallback staff id")
		return p.FallbackID, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve staff: %w", err)
	}
	return u.ID.String(), nil
}
