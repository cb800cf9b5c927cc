package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"product_id":1,"product_name":"Nastar"},{"product_id":2,"product_name":"Kastengel"}]`))
	}))
	defer srv.Close()

	names, err := NewClient(srv.URL+"/").ProductNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "Nastar", 2: "Kastengel"}, names)
}

func TestProductNames_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ProductNames(context.Background())
	assert.Error(t, err)
}

func TestDecreaseStock(t *testing.T) {
	var got decreaseStockBody
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/products/0", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	items := []StockItem{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 1}}
	require.NoError(t, NewClient(srv.URL).DecreaseStock(context.Background(), items))

	assert.Equal(t, 1, calls)
	assert.True(t, got.DecreaseStock)
	assert.Equal(t, items, got.Items)
}

func TestDecreaseStock_Empty(t *testing.T) {
	// no server: an empty item list must not hit the network
	require.NoError(t, NewClient("http://127.0.0.1:1").DecreaseStock(context.Background(), nil))
}

func TestDecreaseStock_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"stok tidak cukup"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DecreaseStock(context.Background(), []StockItem{{ProductID: 1, Quantity: 99}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stok tidak cukup")
}

func TestDecreaseStock_RejectedBodyTruncatedPerRune(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(strings.Repeat("ñ", 300)))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DecreaseStock(context.Background(), []StockItem{{ProductID: 1, Quantity: 1}})
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("ñ", 200))
	assert.NotContains(t, err.Error(), strings.Repeat("ñ", 201))
}
