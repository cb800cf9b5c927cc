package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

/* =========================================================
   Input / output
========================================================= */

type Item struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

type Customer struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

type ChargeRequest struct {
	OrderCode   string
	GrossAmount int64
	Items       []Item
	Customer    Customer
}

type PaymentIntent struct {
	Token       string
	RedirectURL string
}

/* =========================================================
   Snap client
========================================================= */

type SnapGateway struct {
	client snap.Client
}

// NewSnapGateway: production=false berarti Sandbox.
func NewSnapGateway(serverKey string, production bool) *SnapGateway {
	g := &SnapGateway{}
	if production {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

// CreateTransaction membuat transaksi Snap dan mengembalikan token + redirect URL.
func (g *SnapGateway) CreateTransaction(ctx context.Context, req ChargeRequest) (*PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sr, err := buildSnapRequest(req)
	if err != nil {
		return nil, err
	}

	resp, mErr := g.client.CreateTransaction(sr)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans create transaction: %w", mErr)
	}
	if resp == nil || resp.Token == "" {
		return nil, errors.New("midtrans create transaction: empty token")
	}
	return &PaymentIntent{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// batas panjang item_details.name di Snap
const maxItemName = 50

func buildSnapRequest(req ChargeRequest) (*snap.Request, error) {
	if req.GrossAmount <= 0 {
		return nil, errors.New("invalid gross amount")
	}
	if strings.TrimSpace(req.OrderCode) == "" {
		return nil, errors.New("order code is required (used as OrderID)")
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  truncate(it.Name, maxItemName),
			Price: it.Price,
			Qty:   it.Qty,
		})
	}

	first, last := splitName(req.Customer.Name)
	addr := &midtrans.CustomerAddress{
		FName:       first,
		LName:       last,
		Phone:       req.Customer.Phone,
		Address:     req.Customer.Address,
		CountryCode: "IDN",
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderCode,
			GrossAmt: req.GrossAmount,
		},
		Items: &items,
		CustomerDetail: &midtrans.CustomerDetails{
			FName:    first,
			LName:    last,
			Email:    req.Customer.Email,
			Phone:    req.Customer.Phone,
			BillAddr: addr,
			ShipAddr: addr,
		},
	}, nil
}

/* =========================================================
   Signature
========================================================= */

// Signature = SHA512(order_id + status_code + gross_amount + ServerKey), hex lowercase.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}

func VerifySignature(orderID, statusCode, grossAmount, serverKey, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	if got == "" {
		return false
	}
	want := Signature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

/* =========================================================
   Utils
========================================================= */

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}

// truncate memotong per rune agar nama multibyte tetap UTF-8 valid.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
