package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderModel "orderkue_backend/internals/features/orders/orders/model"
	"orderkue_backend/internals/features/payments/webhooks/dto"
	"orderkue_backend/internals/features/payments/webhooks/model"
	"orderkue_backend/internals/features/payments/webhooks/service"
)

type stubHandler struct {
	res *service.Result
	err error
	got dto.MidtransNotification
	raw []byte
}

func (s *stubHandler) Handle(_ context.Context, n dto.MidtransNotification, raw []byte) (*service.Result, error) {
	s.got, s.raw = n, raw
	return s.res, s.err
}

func newApp(h Handler) *fiber.App {
	app := fiber.New()
	ctl := NewWebhookController(h)
	app.Get("/webhook", ctl.Ping)
	app.Post("/webhook", ctl.Notify)
	return app
}

func send(t *testing.T, app *fiber.App, ctype, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", ctype)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

const payload = `{"order_id":"ORD-1","transaction_status":"settlement","payment_type":"bank_transfer",
"status_code":"200","gross_amount":"2500.00","va_numbers":[{"bank":"bca","va_number":"777"}]}`

func TestNotify_JSON(t *testing.T) {
	h := &stubHandler{res: &service.Result{Outcome: model.OutcomeApplied, OrderCode: "ORD-1", To: orderModel.StatusProcessing}}
	code, out := send(t, newApp(h), fiber.MIMEApplicationJSON, payload)

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "Sedang diproses", out["order_status"])
	assert.Equal(t, "ORD-1", h.got.OrderID)
	require.NotNil(t, h.got.VirtualAccount())
	assert.Equal(t, "777", *h.got.VirtualAccount())
	assert.JSONEq(t, payload, string(h.raw))
}

func TestNotify_Form(t *testing.T) {
	h := &stubHandler{res: &service.Result{Outcome: model.OutcomeOrderMissing, OrderCode: "ORD-X"}}
	code, out := send(t, newApp(h), fiber.MIMEApplicationForm, "order_id=ORD-X&transaction_status=pending&bill_key=123")

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ignored", out["status"])
	assert.Equal(t, "ORD-X", h.got.OrderID)
	assert.Equal(t, "123", h.got.BillKey)
}

func TestNotify_InternalFailureIs500(t *testing.T) {
	h := &stubHandler{err: errors.New("db down")}
	code, _ := send(t, newApp(h), fiber.MIMEApplicationJSON, payload)
	assert.Equal(t, fiber.StatusInternalServerError, code)
}

func TestNotify_GarbageIsAcknowledged(t *testing.T) {
	h := &stubHandler{}
	code, out := send(t, newApp(h), fiber.MIMEApplicationJSON, `{not json`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ignored", out["status"])
}

func TestPing(t *testing.T) {
	resp, err := newApp(&stubHandler{}).Test(httptest.NewRequest(fiber.MethodGet, "/webhook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
