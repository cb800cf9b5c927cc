package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

// Product: bentuk minimal dari GET /api/products di backend katalog.
type Product struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
}

type StockItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type decreaseStockBody struct {
	DecreaseStock bool        `json:"decreaseStock"`
	Items         []StockItem `json:"items"`
}

// Client memanggil backend katalog/inventori (layanan terpisah).
type Client struct {
	baseURL string
	timeout time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
}

func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	d := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			d = left
		}
	}
	return d
}

// ProductNames: product_id -> product_name.
func (c *Client) ProductNames(ctx context.Context) (map[int]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var products []Product
	a := fiber.Get(c.baseURL + "/api/products").
		Timeout(c.timeoutFor(ctx)).
		JSONDecoder(sonic.Unmarshal)

	code, _, errs := a.Struct(&products)
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch products: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch products: unexpected status %d", code)
	}

	names := make(map[int]string, len(products))
	for _, p := range products {
		names[p.ProductID] = p.ProductName
	}
	return names, nil
}

// DecreaseStock mengurangi stok sekali untuk seluruh item order.
func (c *Client) DecreaseStock(ctx context.Context, items []StockItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a := fiber.Put(c.baseURL + "/api/products/0").
		Timeout(c.timeoutFor(ctx)).
		JSONEncoder(sonic.Marshal).
		JSON(decreaseStockBody{DecreaseStock: true, Items: items})

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("decrease stock: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("decrease stock: status %d: %s", code, truncate(string(body), 200))
	}
	log.WithField("items", len(items)).Info("stok berhasil dikurangi")
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
