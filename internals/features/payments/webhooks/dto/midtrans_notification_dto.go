package dto

import (
	"strings"
)

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

// MidtransNotification: field notifikasi HTTP Midtrans yang dipakai di sini.
// Field lain di payload diabaikan (payload mentah tetap disimpan di payment_gateway_events).
type MidtransNotification struct {
	TransactionTime   string     `json:"transaction_time" form:"transaction_time"`
	TransactionStatus string     `json:"transaction_status" form:"transaction_status"` // capture, settlement, pending, deny, cancel, expire, failure, refund
	StatusCode        string     `json:"status_code" form:"status_code"`
	SignatureKey      string     `json:"signature_key" form:"signature_key"`
	OrderID           string     `json:"order_id" form:"order_id"`         // = order_code kita
	GrossAmount       string     `json:"gross_amount" form:"gross_amount"` // string dari Midtrans, mis. "25000.00"
	PaymentType       string     `json:"payment_type" form:"payment_type"`
	FraudStatus       string     `json:"fraud_status" form:"fraud_status"` // accept / challenge / deny
	TransactionID     string     `json:"transaction_id" form:"transaction_id"`
	VANumbers         []VANumber `json:"va_numbers" form:"-"`
	BillKey           string     `json:"bill_key" form:"bill_key"`
	PermataVANumber   string     `json:"permata_va_number" form:"permata_va_number"`
}

func (n *MidtransNotification) Normalize() {
	n.OrderID = strings.TrimSpace(n.OrderID)
	n.TransactionStatus = strings.ToLower(strings.TrimSpace(n.TransactionStatus))
	n.FraudStatus = strings.ToLower(strings.TrimSpace(n.FraudStatus))
	n.PaymentType = strings.TrimSpace(n.PaymentType)
}

// VirtualAccount: va_numbers[0] → bill_key (mandiri) → permata_va_number. nil kalau tidak ada.
func (n *MidtransNotification) VirtualAccount() *string {
	if len(n.VANumbers) > 0 {
		if v := strings.TrimSpace(n.VANumbers[0].VANumber); v != "" {
			return &v
		}
	}
	if v := strings.TrimSpace(n.BillKey); v != "" {
		return &v
	}
	if v := strings.TrimSpace(n.PermataVANumber); v != "" {
		return &v
	}
	return nil
}

func (n *MidtransNotification) PaymentMethod() *string {
	if n.PaymentType == "" {
		return nil
	}
	v := n.PaymentType
	return &v
}

/* ===================== Response ===================== */

type WebhookResponse struct {
	Status      string `json:"status"`
	Outcome     string `json:"outcome"`
	OrderCode   string `json:"order_code,omitempty"`
	OrderStatus string `json:"order_status,omitempty"`
}
