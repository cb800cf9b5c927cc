package gateway

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_RoundTrip(t *testing.T) {
	sig := Signature("ORD-1", "200", "25000.00", "SB-key")
	assert.Len(t, sig, 128)

	assert.True(t, VerifySignature("ORD-1", "200", "25000.00", "SB-key", sig))
	assert.True(t, VerifySignature("ORD-1", "200", "25000.00", "SB-key", "  "+sig+" "))
	assert.False(t, VerifySignature("ORD-1", "200", "25000", "SB-key", sig), "gross amount is part of the digest")
	assert.False(t, VerifySignature("ORD-1", "200", "25000.00", "other", sig))
	assert.False(t, VerifySignature("ORD-1", "200", "25000.00", "SB-key", ""))
}

func TestBuildSnapRequest(t *testing.T) {
	sr, err := buildSnapRequest(ChargeRequest{
		OrderCode:   "ORD-1",
		GrossAmount: 25000,
		Items: []Item{
			{ID: "1", Name: "Nastar", Price: 10000, Qty: 2},
			{ID: "2", Name: "Kastengel", Price: 5000, Qty: 1},
		},
		Customer: Customer{Name: "Siti Aminah Putri", Phone: "081234567890", Address: "Jl. Mawar"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-1", sr.TransactionDetails.OrderID)
	assert.Equal(t, int64(25000), sr.TransactionDetails.GrossAmt)
	require.NotNil(t, sr.Items)
	assert.Len(t, *sr.Items, 2)
	assert.Equal(t, "Siti", sr.CustomerDetail.FName)
	assert.Equal(t, "Aminah Putri", sr.CustomerDetail.LName)
	assert.Equal(t, "IDN", sr.CustomerDetail.ShipAddr.CountryCode)
}

func TestBuildSnapRequest_LongMultibyteName(t *testing.T) {
	name := strings.Repeat("é", 30) + strings.Repeat("🍪", 30)
	sr, err := buildSnapRequest(ChargeRequest{
		OrderCode:   "ORD-1",
		GrossAmount: 1000,
		Items:       []Item{{ID: "1", Name: name, Price: 1000, Qty: 1}},
	})
	require.NoError(t, err)

	got := (*sr.Items)[0].Name
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxItemName, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("é", 30)+strings.Repeat("🍪", 20), got)

	assert.Equal(t, "Nastar", truncate("Nastar", maxItemName))
}

func TestBuildSnapRequest_Invalid(t *testing.T) {
	_, err := buildSnapRequest(ChargeRequest{OrderCode: "ORD-1"})
	assert.Error(t, err)

	_, err = buildSnapRequest(ChargeRequest{GrossAmount: 10})
	assert.Error(t, err)
}

func TestCreateTransaction_CancelledContext(t *testing.T) {
	g := NewSnapGateway("SB-key", false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.CreateTransaction(ctx, ChargeRequest{OrderCode: "ORD-1", GrossAmount: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
