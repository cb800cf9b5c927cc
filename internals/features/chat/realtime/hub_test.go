package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"orderkue_backend/internals/features/chat/sessions/model"
	chatService "orderkue_backend/internals/features/chat/sessions/service"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
	"orderkue_backend/internals/testutil"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	got    []Envelope
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, env)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events(name string) []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Envelope
	for _, e := range f.got {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = nil
}

// fakeVerifier: token -> identity staff.
type fakeVerifier map[string]string

func (f fakeVerifier) VerifyStaff(_ context.Context, token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("token tidak dikenal")
}

type fixture struct {
	db  *gorm.DB
	hub *Hub
	ctx context.Context
}

func newFixture(t *testing.T, delay time.Duration) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	hub := NewHub(chatService.NewChatStore(db), fakeVerifier{"staff-1": "1", "staff-2": "2"}, delay)
	t.Cleanup(hub.Close)
	return &fixture{db: db, hub: hub, ctx: context.Background()}
}

func (fx *fixture) seed(t *testing.T, code, phone string) (*orderModel.OrderModel, *model.ChatSessionModel) {
	t.Helper()
	o := &orderModel.OrderModel{
		OrderCode:       code,
		CustomerName:    "Budi",
		CustomerPhone:   phone,
		CustomerAddress: "Jl. Kenanga 2",
		OrderDate:       time.Now(),
		Status:          orderModel.StatusWaiting,
		GrossAmount:     10000,
	}
	require.NoError(t, fx.db.Create(o).Error)
	s := &model.ChatSessionModel{OrderID: o.OrderID, OrderCode: code, AssignedStaffID: "1"}
	require.NoError(t, fx.db.Create(s).Error)
	return o, s
}

func (fx *fixture) join(t *testing.T, c *fakeConn, ev Event) {
	t.Helper()
	require.NoError(t, fx.hub.Attach(c))
	require.NoError(t, fx.hub.Handle(fx.ctx, c, ev))
}

func text(s string) *string { return &s }

func TestStaffJoin_ReceivesSessions(t *testing.T) {
	fx := newFixture(t, time.Minute)
	fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})

	got := staff.events(OutChatSessions)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Data, 1)
	assert.True(t, fx.hub.StaffOnline())
}

func TestStaffJoin_RejectsMissingOrInvalidToken(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, sess := fx.seed(t, "ORD-1", "081111111111")

	frames := map[string]string{
		"missing token": `{"event":"staff_join","data":{}}`,
		"old identity":  `{"event":"staff_join","data":{"identity":"1"}}`,
		"invalid token": `{"event":"staff_join","data":{"token":"palsu"}}`,
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			c := newFakeConn("x-" + name)
			require.NoError(t, fx.hub.Attach(c))
			fx.hub.Dispatch(fx.ctx, c, []byte(frame))

			assert.Len(t, c.events(OutError), 1)
			assert.Empty(t, c.events(OutChatSessions))
			assert.False(t, fx.hub.StaffOnline())

			err := fx.hub.Handle(fx.ctx, c, SendMessage{SessionID: sess.SessionID, Message: text("hi")})
			assert.ErrorIs(t, err, ErrNotJoined)
		})
	}

	c := newFakeConn("s1")
	require.NoError(t, fx.hub.Attach(c))
	fx.hub.Dispatch(fx.ctx, c, []byte(`{"event":"staff_join","data":{"token":"staff-2"}}`))
	assert.Empty(t, c.events(OutError))
	assert.Len(t, c.events(OutChatSessions), 1)
	assert.True(t, fx.hub.StaffOnline())
}

func TestBuyerJoin_PresenceFanout(t *testing.T) {
	fx := newFixture(t, time.Minute)
	fx.seed(t, "ORD-1", "081111111111")
	fx.seed(t, "ORD-2", "081111111111")

	staff := newFakeConn("s1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})

	buyer := newFakeConn("b1")
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})

	assert.Len(t, buyer.events(OutChatSessions), 1)
	assert.Len(t, buyer.events(OutChatMessages), 1)
	online := staff.events(OutBuyerOnline)
	require.Len(t, online, 2)
	assert.True(t, online[0].Data.(BuyerOnlinePayload).Online)
	assert.True(t, fx.hub.BuyerOnline("ORD-1"))

	staff.reset()
	fx.hub.Detach(buyer)

	offline := staff.events(OutBuyerOnline)
	require.Len(t, offline, 2)
	assert.False(t, offline[0].Data.(BuyerOnlinePayload).Online)
	assert.False(t, fx.hub.BuyerOnline("ORD-1"))
}

func TestBuyerJoin_NoOrders(t *testing.T) {
	fx := newFixture(t, time.Minute)
	buyer := newFakeConn("b1")
	fx.join(t, buyer, BuyerJoin{Phone: "089999999999"})

	got := buyer.events(OutChatSessions)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Data)
	assert.Empty(t, buyer.events(OutChatMessages))
}

func TestBuyerReconnect_OldDetachKeepsNewBinding(t *testing.T) {
	fx := newFixture(t, time.Minute)
	fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})

	oldConn := newFakeConn("b-old")
	fx.join(t, oldConn, BuyerJoin{Phone: "081111111111"})
	newConn := newFakeConn("b-new")
	fx.join(t, newConn, BuyerJoin{Phone: "081111111111"})

	staff.reset()
	fx.hub.Detach(oldConn)

	assert.Empty(t, staff.events(OutBuyerOnline), "no offline event for a re-bound code")
	assert.True(t, fx.hub.BuyerOnline("ORD-1"))
}

func TestSendMessage_RoutesByRole(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, sess := fx.seed(t, "ORD-1", "081111111111")

	staffA := newFakeConn("sA")
	staffB := newFakeConn("sB")
	buyer := newFakeConn("b1")
	fx.join(t, staffA, StaffJoin{Token: "staff-1"})
	fx.join(t, staffB, StaffJoin{Token: "staff-2"})
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})

	require.NoError(t, fx.hub.Handle(fx.ctx, buyer, SendMessage{SessionID: sess.SessionID, Message: text("kapan dikirim?")}))
	assert.Len(t, staffA.events(OutNewMessage), 1)
	assert.Len(t, staffB.events(OutNewMessage), 1)
	assert.Empty(t, buyer.events(OutNewMessage))
	require.Len(t, buyer.events(OutMessageSent), 1)

	require.NoError(t, fx.hub.Handle(fx.ctx, staffA, SendMessage{SessionID: sess.SessionID, Message: text("besok kak")}))
	assert.Len(t, staffA.events(OutNewMessage), 1, "sender does not get its own new_message")
	assert.Len(t, staffB.events(OutNewMessage), 2)
	got := buyer.events(OutNewMessage)
	require.Len(t, got, 1)
	msg := got[0].Data.(*model.ChatMessageModel)
	assert.Equal(t, model.SenderStaff, msg.SenderType)
	assert.Equal(t, "1", msg.SenderID)

	var cnt int64
	fx.db.Model(&model.ChatMessageModel{}).Where("session_id = ?", sess.SessionID).Count(&cnt)
	assert.Equal(t, int64(2), cnt)
}

func TestStaffTraffic_DoesNotReachOtherBuyers(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, sess := fx.seed(t, "ORD-1", "081111111111")
	fx.seed(t, "ORD-2", "082222222222")

	staff := newFakeConn("s1")
	buyer := newFakeConn("b1")
	other := newFakeConn("b2")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})
	fx.join(t, other, BuyerJoin{Phone: "082222222222"})
	require.True(t, fx.hub.BuyerOnline("ORD-2"))

	require.NoError(t, fx.hub.Handle(fx.ctx, staff, SendMessage{SessionID: sess.SessionID, Message: text("besok kak")}))
	fx.hub.PushMessage("ORD-1", &model.ChatMessageModel{
		SessionID:  sess.SessionID,
		SenderType: model.SenderStaff,
		SenderID:   "1",
		Message:    text("via REST"),
	})
	require.NoError(t, fx.hub.Handle(fx.ctx, staff, Typing{SessionID: sess.SessionID, Typing: true}))

	assert.Len(t, buyer.events(OutNewMessage), 2)
	assert.Len(t, buyer.events(OutStaffTyping), 1)
	assert.Empty(t, other.events(OutNewMessage))
	assert.Empty(t, other.events(OutStaffTyping))
}

func TestSendMessage_Rejections(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, mine := fx.seed(t, "ORD-1", "081111111111")
	_, other := fx.seed(t, "ORD-2", "082222222222")

	anon := newFakeConn("x")
	require.NoError(t, fx.hub.Attach(anon))
	err := fx.hub.Handle(fx.ctx, anon, SendMessage{SessionID: mine.SessionID, Message: text("hi")})
	assert.ErrorIs(t, err, ErrNotJoined)

	buyer := newFakeConn("b1")
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})
	err = fx.hub.Handle(fx.ctx, buyer, SendMessage{SessionID: other.SessionID, Message: text("hi")})
	assert.ErrorIs(t, err, ErrNotOwner)

	var cnt int64
	fx.db.Model(&model.ChatMessageModel{}).Count(&cnt)
	assert.Zero(t, cnt)
}

func TestTyping_Directional(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, sess := fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	buyer := newFakeConn("b1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})

	require.NoError(t, fx.hub.Handle(fx.ctx, buyer, Typing{SessionID: sess.SessionID, Typing: true}))
	got := staff.events(OutBuyerTyping)
	require.Len(t, got, 1)
	assert.Equal(t, "ORD-1", got[0].Data.(TypingPayload).UserID)

	require.NoError(t, fx.hub.Handle(fx.ctx, staff, Typing{SessionID: sess.SessionID, Typing: true}))
	assert.Len(t, buyer.events(OutStaffTyping), 1)
	assert.Empty(t, staff.events(OutStaffTyping))
}

func TestMarkRead_NotifiesCounterpart(t *testing.T) {
	fx := newFixture(t, time.Minute)
	_, sess := fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	buyer := newFakeConn("b1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})
	require.NoError(t, fx.hub.Handle(fx.ctx, buyer, SendMessage{SessionID: sess.SessionID, Message: text("halo")}))

	require.NoError(t, fx.hub.Handle(fx.ctx, staff, MarkRead{SessionID: sess.SessionID}))

	got := buyer.events(OutMessagesMarkedRead)
	require.Len(t, got, 1)
	p := got[0].Data.(MarkedReadPayload)
	assert.Equal(t, "admin", p.Reader)
	assert.Equal(t, int64(1), p.Updated)
	assert.Len(t, staff.events(OutMessagesMarkedRead), 1, "reader gets confirmation")
}

func TestOrderReceived_SchedulesCleanup(t *testing.T) {
	fx := newFixture(t, 20*time.Millisecond)
	o, sess := fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})

	require.NoError(t, fx.hub.Handle(fx.ctx, staff, OrderStatusChanged{OrderID: o.OrderID, NewStatus: orderModel.StatusReceived}))
	assert.Len(t, staff.events(OutCleanupScheduled), 1)

	require.Eventually(t, func() bool {
		var cnt int64
		fx.db.Model(&model.ChatSessionModel{}).Where("session_id = ?", sess.SessionID).Count(&cnt)
		return cnt == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, fx.hub.cleanup.Pending())
}

func TestOrderStatusChanged_IgnoresOtherStatuses(t *testing.T) {
	fx := newFixture(t, time.Millisecond)
	o, _ := fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})

	require.NoError(t, fx.hub.Handle(fx.ctx, staff, OrderStatusChanged{OrderID: o.OrderID, NewStatus: orderModel.StatusShipping}))
	assert.Empty(t, staff.events(OutCleanupScheduled))
	assert.Zero(t, fx.hub.cleanup.Pending())
}

func TestOrderStatusChanged_StaffOnly(t *testing.T) {
	fx := newFixture(t, time.Minute)
	o, _ := fx.seed(t, "ORD-1", "081111111111")

	buyer := newFakeConn("b1")
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})

	err := fx.hub.Handle(fx.ctx, buyer, OrderStatusChanged{OrderID: o.OrderID, NewStatus: orderModel.StatusReceived})
	assert.ErrorIs(t, err, ErrStaffOnly)
}

func TestBroadcastOrderUpdate_ReachesEveryConnection(t *testing.T) {
	fx := newFixture(t, time.Minute)
	fx.seed(t, "ORD-1", "081111111111")

	staff := newFakeConn("s1")
	buyer := newFakeConn("b1")
	idle := newFakeConn("idle")
	fx.join(t, staff, StaffJoin{Token: "staff-1"})
	fx.join(t, buyer, BuyerJoin{Phone: "081111111111"})
	require.NoError(t, fx.hub.Attach(idle))

	fx.hub.BroadcastOrderUpdate(orderModel.OrderUpdate{
		Type:      orderModel.UpdateStatusChanged,
		OrderID:   uuid.New(),
		OrderCode: "ORD-1",
		Status:    orderModel.StatusProcessing,
	})
	for _, c := range []*fakeConn{staff, buyer, idle} {
		assert.Len(t, c.events(OutOrdersUpdate), 1, c.id)
	}
}

func TestClose_ClosesConnections(t *testing.T) {
	fx := newFixture(t, time.Minute)
	c := newFakeConn("c1")
	require.NoError(t, fx.hub.Attach(c))

	fx.hub.Close()
	assert.True(t, c.closed)
	assert.ErrorIs(t, fx.hub.Attach(newFakeConn("c2")), ErrHubClosed)
	assert.False(t, fx.hub.StaffOnline())
}
