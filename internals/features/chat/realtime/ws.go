package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	eventTimeout = 15 * time.Second
)

// wsConn membungkus *websocket.Conn; tulis diserialisasi dengan mutex karena
// fasthttp/websocket tidak mengizinkan concurrent writer.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	mu   sync.Mutex
	once sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), ws: ws}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(env Envelope) error {
	b, err := sonic.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		err = c.ws.Close()
	})
	return err
}

/* ===================== Fiber handlers ===================== */

// UpgradeGuard menolak request non-websocket di path /ws.
func UpgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler mengembalikan handler websocket yang membaca frame secara berurutan
// per koneksi dan menyerahkannya ke hub.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		conn := newWSConn(ws)
		if err := h.Attach(conn); err != nil {
			_ = conn.Close()
			return
		}
		defer func() {
			h.Detach(conn)
			_ = conn.Close()
		}()

		entry := log.WithField("conn", conn.ID())
		entry.Debug("realtime connection attached")

		for {
			mt, raw, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					entry.WithError(err).Debug("websocket read closed")
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			h.Dispatch(ctx, conn, raw)
			cancel()
		}
	})
}
