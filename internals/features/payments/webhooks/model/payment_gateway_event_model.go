package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const GatewayProviderMidtrans = "midtrans"

// Hasil pemrosesan satu notifikasi gateway.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeUnchanged    Outcome = "unchanged"     // status sudah sama (replay)
	OutcomeIgnored      Outcome = "ignored"       // status gateway tidak dipetakan
	OutcomeOrderMissing Outcome = "order_missing" // order_code tidak dikenal
	OutcomeRejected     Outcome = "rejected"      // transisi tidak diizinkan
	OutcomeBadSignature Outcome = "bad_signature"
	OutcomeFailed       Outcome = "failed"
)

// PaymentGatewayEventModel: log mentah tiap notifikasi yang masuk.
type PaymentGatewayEventModel struct {
	EventID           uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Provider          string         `gorm:"column:provider;type:varchar(30);not null" json:"provider"`
	OrderCode         string         `gorm:"column:order_code;type:varchar(100);index" json:"order_code"`
	TransactionStatus string         `gorm:"column:transaction_status;type:varchar(40)" json:"transaction_status"`
	FraudStatus       *string        `gorm:"column:fraud_status;type:varchar(40)" json:"fraud_status,omitempty"`
	Payload           datatypes.JSON `gorm:"column:payload" json:"payload"`
	SignatureValid    *bool          `gorm:"column:signature_valid" json:"signature_valid,omitempty"`
	Outcome           Outcome        `gorm:"column:outcome;type:varchar(30);not null" json:"outcome"`
	Error             *string        `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PaymentGatewayEventModel) TableName() string { return "payment_gateway_events" }

func (e *PaymentGatewayEventModel) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
