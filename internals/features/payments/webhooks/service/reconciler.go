package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	catalogService "orderkue_backend/internals/features/catalog/products/service"
	chatModel "orderkue_backend/internals/features/chat/sessions/model"
	chatService "orderkue_backend/internals/features/chat/sessions/service"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
	"orderkue_backend/internals/features/payments/gateway"
	"orderkue_backend/internals/features/payments/webhooks/dto"
	"orderkue_backend/internals/features/payments/webhooks/model"
)

const (
	MsgPaymentReceived = "Pembayaran telah diterima! Pesanan Anda sedang kami proses."
	MsgOrderCancelled  = "Pesanan Anda telah dibatalkan."
)

type Inventory interface {
	DecreaseStock(ctx context.Context, items []catalogService.StockItem) error
}

// Notifier: fan-out realtime setelah commit.
type Notifier interface {
	BroadcastOrderUpdate(u orderModel.OrderUpdate)
	PushMessage(orderCode string, msg *chatModel.ChatMessageModel)
}

type Options struct {
	ServerKey       string
	VerifySignature bool
}

type Reconciler struct {
	db        *gorm.DB
	inventory Inventory
	notifier  Notifier
	opts      Options
}

func NewReconciler(db *gorm.DB, inv Inventory, notifier Notifier, opts Options) *Reconciler {
	return &Reconciler{db: db, inventory: inv, notifier: notifier, opts: opts}
}

type Result struct {
	Outcome   model.Outcome
	OrderCode string
	From      orderModel.OrderStatus
	To        orderModel.OrderStatus
}

// MapStatus: status transaksi Midtrans → status order. ok=false untuk status yang tidak ditangani.
func MapStatus(transactionStatus, fraudStatus string) (orderModel.OrderStatus, bool) {
	switch transactionStatus {
	case "settlement":
		return orderModel.StatusProcessing, true
	case "capture":
		if fraudStatus == "accept" {
			return orderModel.StatusProcessing, true
		}
		return "", false
	case "cancel", "expire", "failure":
		return orderModel.StatusCancelled, true
	case "pending":
		return orderModel.StatusWaiting, true
	}
	return "", false
}

// Handle: verifikasi signature (kalau aktif), terapkan notifikasi, lalu catat event.
// Error hanya dikembalikan untuk kegagalan internal (gateway akan retry).
func (r *Reconciler) Handle(ctx context.Context, n dto.MidtransNotification, raw []byte) (*Result, error) {
	n.Normalize()

	var sigValid *bool
	if r.opts.VerifySignature {
		ok := gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, r.opts.ServerKey, n.SignatureKey)
		sigValid = &ok
		if !ok {
			log.WithField("order_code", n.OrderID).Warn("midtrans signature tidak valid, notifikasi diabaikan")
			res := &Result{Outcome: model.OutcomeBadSignature, OrderCode: n.OrderID}
			r.record(ctx, n, raw, sigValid, res, nil)
			return res, nil
		}
	}

	res, err := r.Apply(ctx, n)
	if err != nil {
		r.record(ctx, n, raw, sigValid, &Result{Outcome: model.OutcomeFailed, OrderCode: n.OrderID}, err)
		return nil, err
	}
	r.record(ctx, n, raw, sigValid, res, nil)
	return res, nil
}

// Apply menjalankan transisi status dalam satu transaksi dengan row order di-lock.
func (r *Reconciler) Apply(ctx context.Context, n dto.MidtransNotification) (*Result, error) {
	entry := log.WithFields(log.Fields{"order_code": n.OrderID, "transaction_status": n.TransactionStatus})

	target, ok := MapStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		entry.Info("unhandled transaction status")
		return &Result{Outcome: model.OutcomeIgnored, OrderCode: n.OrderID}, nil
	}

	res := &Result{OrderCode: n.OrderID, To: target}
	var (
		order orderModel.OrderModel
		note  *chatModel.ChatMessageModel
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []orderModel.OrderModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_code = ?", n.OrderID).
			Limit(1).
			Find(&rows).Error; err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if len(rows) == 0 {
			res.Outcome = model.OutcomeOrderMissing
			return nil
		}
		order = rows[0]
		res.From = order.Status

		switch {
		case order.Status == target:
			res.Outcome = model.OutcomeUnchanged
			return nil
		case order.Status != orderModel.StatusWaiting:
			// hanya order "Menunggu" yang boleh berpindah lewat webhook
			res.Outcome = model.OutcomeRejected
			return nil
		}

		now := time.Now()
		updates := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		if pt := n.PaymentMethod(); pt != nil {
			updates["payment_type"] = *pt
		}
		if va := n.VirtualAccount(); va != nil {
			updates["va_number"] = *va
		}
		if err := tx.Model(&orderModel.OrderModel{}).
			Where("order_id = ?", order.OrderID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		var text string
		switch target {
		case orderModel.StatusProcessing:
			if err := r.decreaseStock(ctx, tx, &order); err != nil {
				return err
			}
			text = MsgPaymentReceived
		case orderModel.StatusCancelled:
			text = MsgOrderCancelled
		}

		if text != "" {
			chat := chatService.NewChatStore(tx)
			sess, err := chat.FindSessionByOrderCode(ctx, order.OrderCode)
			if err != nil {
				return err
			}
			if sess == nil {
				entry.Warn("order tanpa chat session, pesan status dilewati")
			} else {
				msg, err := chat.AppendSystemMessage(ctx, sess, sess.AssignedStaffID, text)
				if err != nil {
					return err
				}
				note = msg
			}
		}

		order.Status = target
		res.Outcome = model.OutcomeApplied
		return nil
	})
	if err != nil {
		entry.WithError(err).Error("webhook transaction rolled back")
		return nil, err
	}

	switch res.Outcome {
	case model.OutcomeApplied:
		r.notifier.BroadcastOrderUpdate(orderModel.OrderUpdate{
			Type:      orderModel.UpdateStatusChanged,
			OrderID:   order.OrderID,
			OrderCode: order.OrderCode,
			Status:    target,
		})
		if note != nil {
			r.notifier.PushMessage(order.OrderCode, note)
		}
		entry.WithFields(log.Fields{"from": res.From, "to": target}).Info("order status updated")
	case model.OutcomeOrderMissing:
		entry.Warn("order not found, acknowledging notification")
	case model.OutcomeRejected:
		entry.WithFields(log.Fields{"from": res.From, "to": target}).Warn("status transition rejected")
	default:
		entry.Debug("order status unchanged")
	}
	return res, nil
}

func (r *Reconciler) decreaseStock(ctx context.Context, tx *gorm.DB, o *orderModel.OrderModel) error {
	var items []orderModel.OrderItemModel
	if err := tx.Where("order_id = ?", o.OrderID).Order("product_id ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	stock := make([]catalogService.StockItem, 0, len(items))
	for _, it := range items {
		stock = append(stock, catalogService.StockItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if err := r.inventory.DecreaseStock(ctx, stock); err != nil {
		return fmt.Errorf("inventory decrement: %w", err)
	}
	return nil
}

// record menyimpan jejak notifikasi. Best-effort: gagal simpan hanya di-log.
func (r *Reconciler) record(ctx context.Context, n dto.MidtransNotification, raw []byte, sigValid *bool, res *Result, cause error) {
	payload := raw
	if len(payload) == 0 || !sonic.Valid(payload) {
		b, err := sonic.Marshal(n)
		if err != nil {
			b = []byte("{}")
		}
		payload = b
	}

	ev := model.PaymentGatewayEventModel{
		Provider:          model.GatewayProviderMidtrans,
		OrderCode:         n.OrderID,
		TransactionStatus: n.TransactionStatus,
		Payload:           datatypes.JSON(payload),
		SignatureValid:    sigValid,
		Outcome:           res.Outcome,
	}
	if n.FraudStatus != "" {
		fs := n.FraudStatus
		ev.FraudStatus = &fs
	}
	if cause != nil {
		msg := cause.Error()
		ev.Error = &msg
	}

	// ctx pemanggil bisa sudah habis; log event tetap ditulis.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.db.WithContext(wctx).Create(&ev).Error; err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).WithField("order_code", n.OrderID).Warn("gagal menyimpan payment gateway event")
	}
}
