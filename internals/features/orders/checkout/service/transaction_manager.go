package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	chatModel "orderkue_backend/internals/features/chat/sessions/model"
	chatService "orderkue_backend/internals/features/chat/sessions/service"
	"orderkue_backend/internals/features/orders/checkout/dto"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
	"orderkue_backend/internals/features/payments/gateway"
	staffService "orderkue_backend/internals/features/users/staff/service"
	"orderkue_backend/internals/helpers/apperr"
)

type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req gateway.ChargeRequest) (*gateway.PaymentIntent, error)
}

type Catalog interface {
	ProductNames(ctx context.Context) (map[int]string, error)
}

type Broadcaster interface {
	BroadcastOrderUpdate(u orderModel.OrderUpdate)
}

// TransactionManager membuat order + item + sesi chat + pesan pembuka dan
// payment intent Midtrans dalam satu transaksi DB.
type TransactionManager struct {
	db          *gorm.DB
	gateway     PaymentGateway
	catalog     Catalog
	staff       staffService.AssignmentPolicy
	broadcaster Broadcaster
	now         func() time.Time
}

func NewTransactionManager(
	db *gorm.DB,
	gw PaymentGateway,
	catalog Catalog,
	staff staffService.AssignmentPolicy,
	broadcaster Broadcaster,
) *TransactionManager {
	return &TransactionManager{
		db:          db,
		gateway:     gw,
		catalog:     catalog,
		staff:       staff,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func OpeningMessage(orderCode string) string {
	return fmt.Sprintf("Pesanan %s telah dibuat. Silakan selesaikan pembayaran untuk melanjutkan.", orderCode)
}

// Initiate: validasi → tulis lokal → gateway → commit → broadcast.
// Kegagalan gateway me-rollback semua tulisan lokal.
func (m *TransactionManager) Initiate(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	lines, err := req.Lines()
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	order := req.ToOrderModel(m.now())
	var intent *gateway.PaymentIntent

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) order + items
		if err := tx.Create(order).Error; err != nil {
			if apperr.IsDuplicateKey(err) {
				return apperr.Conflict("Order code already exists", err)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		items := make([]orderModel.OrderItemModel, 0, len(lines))
		for _, l := range lines {
			items = append(items, orderModel.OrderItemModel{
				OrderID:   order.OrderID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     l.Price,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		// 2) staff pemilik sesi
		staffID, err := m.staff.ResolveStaff(ctx, tx)
		if err != nil {
			return err
		}

		// 3) sesi chat + pesan pembuka
		chat := chatService.NewChatStore(tx)
		sess := &chatModel.ChatSessionModel{
			OrderID:         order.OrderID,
			OrderCode:       order.OrderCode,
			AssignedStaffID: staffID,
			CreatedByDevice: req.DeviceLabel(),
		}
		if err := chat.CreateSession(ctx, sess); err != nil {
			return err
		}
		if _, err := chat.AppendSystemMessage(ctx, sess, staffID, OpeningMessage(order.OrderCode)); err != nil {
			return err
		}

		// 4) payment intent; gagal = rollback
		charge := m.chargeRequest(ctx, order, lines)
		pi, err := m.gateway.CreateTransaction(ctx, charge)
		if err != nil {
			return apperr.Gateway("Failed to initiate payment", err)
		}

		token := pi.Token
		if err := tx.Model(&orderModel.OrderModel{}).
			Where("order_id = ?", order.OrderID).
			Update("snap_token", token).Error; err != nil {
			return fmt.Errorf("store snap token: %w", err)
		}
		intent = pi
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("order_code", order.OrderCode).Warn("initiate payment gagal, transaksi di-rollback")
		if apperr.Is(err, apperr.KindConflict) || apperr.Is(err, apperr.KindGateway) {
			return nil, err
		}
		return nil, apperr.Storage("Failed to initiate payment", err)
	}

	m.broadcaster.BroadcastOrderUpdate(orderModel.OrderUpdate{
		Type:      orderModel.UpdateNewOrder,
		OrderID:   order.OrderID,
		OrderCode: order.OrderCode,
		Status:    order.Status,
	})
	log.WithFields(log.Fields{
		"order_code": order.OrderCode,
		"gross":      order.GrossAmount,
	}).Info("payment initiated for new order")

	return &dto.InitiatePaymentResponse{
		SnapToken:   intent.Token,
		OrderID:     order.OrderCode,
		RedirectURL: intent.RedirectURL,
	}, nil
}

// chargeRequest memakai nama produk dari katalog; kalau katalog tidak bisa
// dihubungi, nama jatuh ke "Produk <id>".
func (m *TransactionManager) chargeRequest(ctx context.Context, o *orderModel.OrderModel, lines []dto.CartLine) gateway.ChargeRequest {
	names, err := m.catalog.ProductNames(ctx)
	if err != nil {
		log.WithError(err).Warn("katalog tidak tersedia, pakai nama produk default")
		names = nil
	}

	items := make([]gateway.Item, 0, len(lines))
	for _, l := range lines {
		name := names[l.ProductID]
		if name == "" {
			name = "Produk " + strconv.Itoa(l.ProductID)
		}
		items = append(items, gateway.Item{
			ID:    strconv.Itoa(l.ProductID),
			Name:  name,
			Price: l.Price,
			Qty:   int32(l.Quantity),
		})
	}

	email := ""
	if o.CustomerEmail != nil {
		email = *o.CustomerEmail
	}
	return gateway.ChargeRequest{
		OrderCode:   o.OrderCode,
		GrossAmount: o.GrossAmount,
		Items:       items,
		Customer: gateway.Customer{
			Name:    o.CustomerName,
			Phone:   o.CustomerPhone,
			Email:   email,
			Address: o.CustomerAddress,
		},
	}
}
