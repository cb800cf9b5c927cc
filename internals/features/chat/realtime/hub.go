package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/features/chat/sessions/dto"
	"orderkue_backend/internals/features/chat/sessions/model"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
)

// Conn adalah satu koneksi realtime. Send harus aman dipanggil dari banyak goroutine.
type Conn interface {
	ID() string
	Send(Envelope) error
	Close() error
}

// ChatStore: bagian dari service chat yang dipakai hub.
type ChatStore interface {
	ListStaffSessions(ctx context.Context) ([]dto.SessionSummary, error)
	OrderCodesByPhone(ctx context.Context, phone string) ([]string, error)
	SessionsByOrderCodes(ctx context.Context, codes []string) ([]model.ChatSessionModel, error)
	MessagesForSessions(ctx context.Context, sessionIDs []uuid.UUID) ([]model.ChatMessageModel, error)
	FindSession(ctx context.Context, sessionID uuid.UUID) (*model.ChatSessionModel, error)
	AppendMessage(ctx context.Context, req dto.CreateMessageRequest) (*model.ChatMessageModel, *model.ChatSessionModel, error)
	MarkRead(ctx context.Context, sessionID uuid.UUID, reader model.SenderType) (int64, *model.ChatSessionModel, error)
	DeleteSessionByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// StaffVerifier memvalidasi token staff_join dan mengembalikan identity staff.
type StaffVerifier interface {
	VerifyStaff(ctx context.Context, token string) (string, error)
}

var (
	ErrUnauthorized = errors.New("staff token rejected")
	ErrNotJoined = errors.New("connection has not joined as staff or buyer")
	ErrNotOwner  = errors.New("session does not belong to this buyer")
	ErrStaffOnly = errors.New("only staff connections may send this event")
	ErrHubClosed = errors.New("realtime hub closed")
)

type peer struct {
	conn     Conn
	kind     model.SenderType // "" selama belum join
	identity string           // staff identity atau nomor HP buyer
	codes    []string         // order code yang di-bind (buyer)
}

type delivery struct {
	conn Conn
	env  Envelope
}

// Hub menyimpan presence staff/buyer dan meneruskan event chat ke koneksi yang tepat.
// State hanya disentuh di bawah mu; pengiriman dilakukan setelah lock dilepas.
type Hub struct {
	mu     sync.RWMutex
	peers  map[string]*peer // conn id -> peer
	staff  map[string]Conn  // staff identity -> conn
	buyers map[string]Conn  // order code -> conn
	closed bool

	store    ChatStore
	verifier StaffVerifier
	cleanup  *cleanupScheduler
}

func NewHub(store ChatStore, verifier StaffVerifier, cleanupDelay time.Duration) *Hub {
	return &Hub{
		peers:    make(map[string]*peer),
		staff:    make(map[string]Conn),
		buyers:   make(map[string]Conn),
		store:    store,
		verifier: verifier,
		cleanup:  newCleanupScheduler(cleanupDelay, store.DeleteSessionByOrderID),
	}
}

/* ===================== Connection lifecycle ===================== */

func (h *Hub) Attach(c Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.peers[c.ID()]; !ok {
		h.peers[c.ID()] = &peer{conn: c}
	}
	return nil
}

// Detach melepas koneksi dan semua binding yang masih menunjuk ke koneksi ini.
func (h *Hub) Detach(c Conn) {
	h.mu.Lock()
	p, ok := h.peers[c.ID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.peers, c.ID())
	out := h.unbindLocked(p)
	h.mu.Unlock()

	h.deliver(out)
	log.WithFields(log.Fields{"conn": c.ID(), "kind": p.kind}).Debug("realtime connection detached")
}

// unbindLocked menghapus entry yang masih milik p. Binding yang sudah ditimpa
// koneksi lain dibiarkan. Event offline hanya untuk order code yang benar-benar dilepas.
func (h *Hub) unbindLocked(p *peer) []delivery {
	var out []delivery
	switch p.kind {
	case model.SenderStaff:
		if cur, ok := h.staff[p.identity]; ok && cur.ID() == p.conn.ID() {
			delete(h.staff, p.identity)
		}
	case model.SenderBuyer:
		for _, code := range p.codes {
			cur, ok := h.buyers[code]
			if !ok || cur.ID() != p.conn.ID() {
				continue
			}
			delete(h.buyers, code)
			out = append(out, h.toStaffLocked("", Envelope{
				Event: OutBuyerOnline,
				Data:  BuyerOnlinePayload{OrderCode: code, Online: false},
			})...)
		}
	}
	p.kind, p.identity, p.codes = "", "", nil
	return out
}

// Close menutup semua koneksi dan membatalkan timer cleanup yang tertunda.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make([]Conn, 0, len(h.peers))
	for _, p := range h.peers {
		conns = append(conns, p.conn)
	}
	h.peers = make(map[string]*peer)
	h.staff = make(map[string]Conn)
	h.buyers = make(map[string]Conn)
	h.mu.Unlock()

	h.cleanup.Stop()
	for _, c := range conns {
		_ = c.Close()
	}
	log.WithField("connections", len(conns)).Info("realtime hub closed")
}

/* ===================== Join ===================== */

// BindStaff mendaftarkan koneksi sebagai staff dan mengirim daftar sesi lengkap.
// identity harus sudah diverifikasi pemanggil (lihat Handle untuk staff_join).
func (h *Hub) BindStaff(ctx context.Context, c Conn, identity string) error {
	sessions, err := h.store.ListStaffSessions(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	p := h.peerLocked(c)
	out := h.unbindLocked(p)
	p.kind, p.identity = model.SenderStaff, identity
	h.staff[identity] = c
	h.mu.Unlock()

	h.deliver(out)
	h.deliver([]delivery{{conn: c, env: Envelope{Event: OutChatSessions, Data: sessions}}})
	log.WithFields(log.Fields{"conn": c.ID(), "staff": identity, "sessions": len(sessions)}).Info("staff joined")
	return nil
}

// BindBuyer mengikat koneksi ke semua order code milik nomor HP, mengirim sesi +
// riwayat pesan ke buyer, dan memberi tahu staff bahwa buyer online.
func (h *Hub) BindBuyer(ctx context.Context, c Conn, phone string) error {
	codes, err := h.store.OrderCodesByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		log.WithField("conn", c.ID()).Info("buyer join tanpa order")
		return c.Send(Envelope{Event: OutChatSessions, Data: []model.ChatSessionModel{}})
	}
	sessions, err := h.store.SessionsByOrderCodes(ctx, codes)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	msgs, err := h.store.MessagesForSessions(ctx, ids)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	p := h.peerLocked(c)
	out := h.unbindLocked(p)
	p.kind, p.identity = model.SenderBuyer, phone
	p.codes = append([]string(nil), codes...)
	for _, code := range codes {
		h.buyers[code] = c
		out = append(out, h.toStaffLocked("", Envelope{
			Event: OutBuyerOnline,
			Data:  BuyerOnlinePayload{OrderCode: code, Online: true},
		})...)
	}
	h.mu.Unlock()

	h.deliver([]delivery{
		{conn: c, env: Envelope{Event: OutChatSessions, Data: sessions}},
		{conn: c, env: Envelope{Event: OutChatMessages, Data: msgs}},
	})
	h.deliver(out)
	log.WithFields(log.Fields{"conn": c.ID(), "orders": len(codes)}).Info("buyer joined")
	return nil
}

/* ===================== Fan-out (dipakai REST & webhook juga) ===================== */

// BroadcastOrderUpdate mengirim orders_update ke semua koneksi.
func (h *Hub) BroadcastOrderUpdate(u orderModel.OrderUpdate) {
	h.mu.RLock()
	out := make([]delivery, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, delivery{conn: p.conn, env: Envelope{Event: OutOrdersUpdate, Data: u}})
	}
	h.mu.RUnlock()
	h.deliver(out)
}

// PushMessage meneruskan pesan yang sudah tersimpan ke semua staff dan buyer pemilik order.
func (h *Hub) PushMessage(orderCode string, msg *model.ChatMessageModel) {
	h.mu.RLock()
	out := h.messageRecipientsLocked(orderCode, msg, nil)
	h.mu.RUnlock()
	h.deliver(out)
}

// PushReadReceipt memberi tahu pihak lawan bahwa pesannya sudah dibaca.
func (h *Hub) PushReadReceipt(sess *model.ChatSessionModel, reader model.SenderType, updated int64) {
	h.mu.RLock()
	out := h.readRecipientsLocked(sess, reader, updated, nil)
	h.mu.RUnlock()
	h.deliver(out)
}

func (h *Hub) StaffOnline() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.staff) > 0
}

func (h *Hub) BuyerOnline(orderCode string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.buyers[orderCode]
	return ok
}

/* ===================== Internal ===================== */

func (h *Hub) peerLocked(c Conn) *peer {
	p, ok := h.peers[c.ID()]
	if !ok {
		p = &peer{conn: c}
		h.peers[c.ID()] = p
	}
	return p
}

func (h *Hub) snapshot(c Conn) (peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.peers[c.ID()]
	if !ok || p.kind == "" {
		return peer{}, false
	}
	cp := *p
	cp.codes = append([]string(nil), p.codes...)
	return cp, true
}

func (h *Hub) toStaffLocked(excludeID string, env Envelope) []delivery {
	out := make([]delivery, 0, len(h.staff))
	for _, c := range h.staff {
		if c.ID() == excludeID {
			continue
		}
		out = append(out, delivery{conn: c, env: env})
	}
	return out
}

func (h *Hub) messageRecipientsLocked(orderCode string, msg *model.ChatMessageModel, from Conn) []delivery {
	exclude := ""
	if from != nil {
		exclude = from.ID()
	}
	env := Envelope{Event: OutNewMessage, Data: msg}
	out := h.toStaffLocked(exclude, env)
	if msg.SenderType == model.SenderStaff {
		if b, ok := h.buyers[orderCode]; ok && b.ID() != exclude {
			out = append(out, delivery{conn: b, env: env})
		}
	}
	return out
}

func (h *Hub) readRecipientsLocked(sess *model.ChatSessionModel, reader model.SenderType, updated int64, from Conn) []delivery {
	exclude := ""
	if from != nil {
		exclude = from.ID()
	}
	env := Envelope{Event: OutMessagesMarkedRead, Data: MarkedReadPayload{
		SessionID: sess.SessionID,
		Reader:    string(reader),
		Updated:   updated,
	}}
	out := h.toStaffLocked(exclude, env)
	if reader == model.SenderStaff {
		if b, ok := h.buyers[sess.OrderCode]; ok && b.ID() != exclude {
			out = append(out, delivery{conn: b, env: env})
		}
	}
	return out
}

func (h *Hub) deliver(out []delivery) {
	for _, d := range out {
		if err := d.conn.Send(d.env); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"conn":  d.conn.ID(),
				"event": d.env.Event,
			}).Warn("realtime send failed")
		}
	}
}
