package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	orderModel "orderkue_backend/internals/features/orders/orders/model"
)

// Envelope adalah bentuk frame di websocket: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

/* ===================== Outbound event names ===================== */

const (
	OutChatSessions       = "chat_sessions"
	OutChatMessages       = "chat_messages"
	OutBuyerOnline        = "buyer_online"
	OutNewMessage         = "new_message"
	OutMessageSent        = "message_sent"
	OutStaffTyping        = "admin_typing"
	OutBuyerTyping        = "user_typing"
	OutMessagesMarkedRead = "messages_marked_read"
	OutOrdersUpdate       = "orders_update"
	OutCleanupScheduled   = "cleanup_scheduled"
	OutError              = "error"
)

type BuyerOnlinePayload struct {
	OrderCode string `json:"orderCode"`
	Online    bool   `json:"online"`
}

type TypingPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    string    `json:"user_id"`
	Typing    bool      `json:"typing"`
}

type MarkedReadPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	Reader    string    `json:"reader"`
	Updated   int64     `json:"updated"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

/* ===================== Inbound events ===================== */

// Event adalah event masuk dari client yang sudah di-decode dan divalidasi.
type Event interface {
	Name() string
}

// StaffJoin membawa JWT staff; identity diambil dari token yang terverifikasi.
type StaffJoin struct {
	Token string `json:"token"`
}

type BuyerJoin struct {
	Phone string `json:"phone"`
}

type SendMessage struct {
	SessionID uuid.UUID `json:"session_id"`
	Message   *string   `json:"message"`
	FileURL   *string   `json:"file_url"`
	FileType  *string   `json:"file_type"`
}

type Typing struct {
	SessionID uuid.UUID `json:"session_id"`
	Typing    bool      `json:"typing"`
}

type MarkRead struct {
	SessionID uuid.UUID `json:"session_id"`
}

type OrderStatusChanged struct {
	OrderID   uuid.UUID              `json:"orderId"`
	NewStatus orderModel.OrderStatus `json:"newStatus"`
}

func (StaffJoin) Name() string          { return "staff_join" }
func (BuyerJoin) Name() string          { return "buyer_join" }
func (SendMessage) Name() string        { return "send_message" }
func (Typing) Name() string             { return "typing" }
func (MarkRead) Name() string           { return "mark_messages_read" }
func (OrderStatusChanged) Name() string { return "order_status_changed" }

var ErrUnknownEvent = errors.New("unknown event")

type rawEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEvent mem-parse satu frame client menjadi Event bertipe.
func DecodeEvent(raw []byte) (Event, error) {
	var env rawEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("{}")
	}

	switch strings.TrimSpace(env.Event) {
	case StaffJoin{}.Name():
		var e StaffJoin
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.Token = strings.TrimSpace(e.Token); e.Token == "" {
			return nil, errors.New("token is required")
		}
		return e, nil

	case BuyerJoin{}.Name():
		var e BuyerJoin
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.Phone = strings.TrimSpace(e.Phone); e.Phone == "" {
			return nil, errors.New("phone is required")
		}
		return e, nil

	case SendMessage{}.Name():
		var e SendMessage
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.SessionID == uuid.Nil {
			return nil, errors.New("session_id is required")
		}
		return e, nil

	case Typing{}.Name():
		var e Typing
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.SessionID == uuid.Nil {
			return nil, errors.New("session_id is required")
		}
		return e, nil

	case MarkRead{}.Name():
		var e MarkRead
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.SessionID == uuid.Nil {
			return nil, errors.New("session_id is required")
		}
		return e, nil

	case OrderStatusChanged{}.Name():
		var e OrderStatusChanged
		if err := sonic.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		if e.OrderID == uuid.Nil || e.NewStatus == "" {
			return nil, errors.New("orderId and newStatus are required")
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func errorEnvelope(event string, err error) Envelope {
	return Envelope{Event: OutError, Data: ErrorPayload{Event: event, Message: err.Error()}}
}
