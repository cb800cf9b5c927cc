package realtime

import (
	"context"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/features/chat/sessions/dto"
	"orderkue_backend/internals/features/chat/sessions/model"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
)

// Dispatch men-decode satu frame client lalu menjalankannya. Frame rusak atau
// event yang gagal dibalas dengan event "error" ke koneksi yang sama.
func (h *Hub) Dispatch(ctx context.Context, c Conn, raw []byte) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		_ = c.Send(errorEnvelope("", err))
		return
	}
	if err := h.Handle(ctx, c, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{"conn": c.ID(), "event": ev.Name()}).Warn("realtime event failed")
		_ = c.Send(errorEnvelope(ev.Name(), err))
	}
}

// Handle menjalankan satu event dari koneksi c. Error dikembalikan ke pemanggil
// (adapter websocket mengirimnya sebagai event "error" ke koneksi yang sama).
func (h *Hub) Handle(ctx context.Context, c Conn, ev Event) error {
	switch e := ev.(type) {
	case StaffJoin:
		identity, err := h.verifier.VerifyStaff(ctx, e.Token)
		if err != nil {
			log.WithError(err).WithField("conn", c.ID()).Warn("staff_join ditolak")
			return ErrUnauthorized
		}
		return h.BindStaff(ctx, c, identity)
	case BuyerJoin:
		return h.BindBuyer(ctx, c, e.Phone)
	case SendMessage:
		return h.handleSend(ctx, c, e)
	case Typing:
		return h.handleTyping(ctx, c, e)
	case MarkRead:
		return h.handleMarkRead(ctx, c, e)
	case OrderStatusChanged:
		return h.handleStatusChanged(c, e)
	}
	return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}

// authorize memastikan koneksi sudah join dan (untuk buyer) memiliki sesi tsb.
// Dipanggil setelah lookup ke DB sehingga binding dibaca ulang pasca-suspend.
func (h *Hub) authorize(c Conn, sess *model.ChatSessionModel) (peer, error) {
	p, ok := h.snapshot(c)
	if !ok {
		return peer{}, ErrNotJoined
	}
	if p.kind == model.SenderBuyer && !slices.Contains(p.codes, sess.OrderCode) {
		return peer{}, ErrNotOwner
	}
	return p, nil
}

func (h *Hub) handleSend(ctx context.Context, c Conn, e SendMessage) error {
	if _, ok := h.snapshot(c); !ok {
		return ErrNotJoined
	}
	sess, err := h.store.FindSession(ctx, e.SessionID)
	if err != nil {
		return err
	}
	p, err := h.authorize(c, sess)
	if err != nil {
		return err
	}

	msg, sess, err := h.store.AppendMessage(ctx, dto.CreateMessageRequest{
		SessionID:  e.SessionID,
		SenderType: p.kind,
		SenderID:   p.identity,
		Message:    e.Message,
		FileURL:    e.FileURL,
		FileType:   e.FileType,
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	out := h.messageRecipientsLocked(sess.OrderCode, msg, c)
	h.mu.RUnlock()
	out = append(out, delivery{conn: c, env: Envelope{Event: OutMessageSent, Data: msg}})
	h.deliver(out)
	return nil
}

func (h *Hub) handleTyping(ctx context.Context, c Conn, e Typing) error {
	if _, ok := h.snapshot(c); !ok {
		return ErrNotJoined
	}
	sess, err := h.store.FindSession(ctx, e.SessionID)
	if err != nil {
		return err
	}
	p, err := h.authorize(c, sess)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var out []delivery
	if p.kind == model.SenderStaff {
		env := Envelope{Event: OutStaffTyping, Data: TypingPayload{SessionID: sess.SessionID, UserID: p.identity, Typing: e.Typing}}
		out = h.toStaffLocked(c.ID(), env)
		if b, ok := h.buyers[sess.OrderCode]; ok {
			out = append(out, delivery{conn: b, env: env})
		}
	} else {
		env := Envelope{Event: OutBuyerTyping, Data: TypingPayload{SessionID: sess.SessionID, UserID: sess.OrderCode, Typing: e.Typing}}
		out = h.toStaffLocked("", env)
	}
	h.mu.RUnlock()
	h.deliver(out)
	return nil
}

func (h *Hub) handleMarkRead(ctx context.Context, c Conn, e MarkRead) error {
	if _, ok := h.snapshot(c); !ok {
		return ErrNotJoined
	}
	sess, err := h.store.FindSession(ctx, e.SessionID)
	if err != nil {
		return err
	}
	p, err := h.authorize(c, sess)
	if err != nil {
		return err
	}

	updated, sess, err := h.store.MarkRead(ctx, e.SessionID, p.kind)
	if err != nil {
		return err
	}

	h.mu.RLock()
	out := h.readRecipientsLocked(sess, p.kind, updated, c)
	h.mu.RUnlock()
	out = append(out, delivery{conn: c, env: Envelope{Event: OutMessagesMarkedRead, Data: MarkedReadPayload{
		SessionID: sess.SessionID,
		Reader:    string(p.kind),
		Updated:   updated,
	}}})
	h.deliver(out)
	return nil
}

// handleStatusChanged: staff melaporkan perubahan status. Untuk "Diterima",
// sesi chat order tsb dihapus setelah delay.
func (h *Hub) handleStatusChanged(c Conn, e OrderStatusChanged) error {
	p, ok := h.snapshot(c)
	if !ok {
		return ErrNotJoined
	}
	if p.kind != model.SenderStaff {
		return ErrStaffOnly
	}
	if e.NewStatus != orderModel.StatusReceived {
		log.WithFields(log.Fields{"order_id": e.OrderID, "status": e.NewStatus}).Debug("status change tanpa cleanup")
		return nil
	}
	if h.cleanup.Schedule(e.OrderID) {
		return c.Send(Envelope{Event: OutCleanupScheduled, Data: map[string]any{
			"orderId": e.OrderID,
			"delay":   h.cleanup.delay.String(),
		}})
	}
	return nil
}
