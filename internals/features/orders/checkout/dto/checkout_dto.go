package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	orderModel "orderkue_backend/internals/features/orders/orders/model"
)

// Nomor HP Indonesia: +62/62/0 lalu 8, digit operator 1-9, total 9-12 digit setelah prefix.
var idPhoneRe = regexp.MustCompile(`^(\+62|62|0)8[1-9][0-9]{6,9}$`)

// MaxItemQuantity: batas qty per produk. Snap menyimpan qty sebagai int32.
const MaxItemQuantity = 10000

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("id_phone", func(fl validator.FieldLevel) bool {
		return idPhoneRe.MatchString(fl.Field().String())
	})
	return v
}

/* ===================== Request ===================== */

type Location struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type CustomerInfo struct {
	Name          string    `json:"name" validate:"required,max=120"`
	Phone         string    `json:"phone" validate:"required,id_phone"`
	Address       string    `json:"address" validate:"required"`
	OrderCode     string    `json:"order_code" validate:"required,max=100"`
	CustomerEmail *string   `json:"customer_email" validate:"omitempty,email"`
	Location      *Location `json:"location"`
}

type PaymentDetails struct {
	Price        int64            `json:"price" validate:"required,gt=0"`
	ItemQuantity map[string]int   `json:"itemQuantity" validate:"required,min=1"`
	ItemPrice    map[string]int64 `json:"itemPrice" validate:"required,min=1"`
}

type OrderMetadata struct {
	OrderDate  *time.Time      `json:"orderDate"`
	DeviceInfo json.RawMessage `json:"deviceInfo"`
}

type InitiatePaymentRequest struct {
	CustomerInfo   *CustomerInfo   `json:"customerInfo" validate:"required"`
	PaymentDetails *PaymentDetails `json:"paymentDetails" validate:"required"`
	OrderMetadata  *OrderMetadata  `json:"orderMetadata"`
}

// CartLine: satu baris keranjang yang sudah diparse.
type CartLine struct {
	ProductID int
	Quantity  int
	Price     int64
}

func (r *InitiatePaymentRequest) Normalize() {
	if r.CustomerInfo != nil {
		ci := r.CustomerInfo
		ci.Name = strings.TrimSpace(ci.Name)
		ci.Phone = strings.TrimSpace(ci.Phone)
		ci.Address = strings.TrimSpace(ci.Address)
		ci.OrderCode = strings.TrimSpace(ci.OrderCode)
		if ci.CustomerEmail != nil {
			e := strings.TrimSpace(*ci.CustomerEmail)
			if e == "" {
				ci.CustomerEmail = nil
			} else {
				ci.CustomerEmail = &e
			}
		}
	}
}

// Validate mengembalikan pesan yang siap dikirim ke client (400).
func (r *InitiatePaymentRequest) Validate() error {
	if r == nil || r.CustomerInfo == nil || r.PaymentDetails == nil || r.PaymentDetails.Price <= 0 {
		return errors.New("Invalid request data")
	}
	r.Normalize()

	if err := validate.Struct(r); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return errors.New(messageFor(ves[0]))
		}
		return err
	}

	lines, err := r.Lines()
	if err != nil {
		return err
	}
	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.Price
	}
	if total != r.PaymentDetails.Price {
		return fmt.Errorf("Total price %d does not match items (%d)", r.PaymentDetails.Price, total)
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name", "Address":
		return "Customer name, phone, and address are required"
	case "Phone":
		if fe.Tag() == "required" {
			return "Customer name, phone, and address are required"
		}
		return "Invalid Indonesian phone number format"
	case "CustomerEmail":
		return "Invalid email format"
	case "OrderCode":
		return "order_code is required"
	case "ItemQuantity", "ItemPrice":
		return "At least one item must be ordered with quantity and price"
	case "Latitude", "Longitude":
		return "Invalid location"
	}
	return "Invalid request data"
}

// Lines memeriksa kesamaan key itemQuantity/itemPrice dan mengubahnya menjadi
// baris keranjang urut product_id.
func (r *InitiatePaymentRequest) Lines() ([]CartLine, error) {
	pd := r.PaymentDetails
	if len(pd.ItemQuantity) == 0 || len(pd.ItemPrice) == 0 {
		return nil, errors.New("At least one item must be ordered with quantity and price")
	}
	if len(pd.ItemQuantity) != len(pd.ItemPrice) {
		return nil, errors.New("Mismatch between item quantity and price data")
	}

	lines := make([]CartLine, 0, len(pd.ItemQuantity))
	for key, qty := range pd.ItemQuantity {
		price, ok := pd.ItemPrice[key]
		if !ok {
			return nil, errors.New("Mismatch between item quantity and price data")
		}
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("Invalid product id %q", key)
		}
		if qty <= 0 || price < 0 {
			return nil, fmt.Errorf("Invalid quantity or price for product %d", id)
		}
		if qty > MaxItemQuantity {
			return nil, fmt.Errorf("Quantity for product %d exceeds %d", id, MaxItemQuantity)
		}
		lines = append(lines, CartLine{ProductID: id, Quantity: qty, Price: price})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

/* ===================== Mapping ===================== */

func (r *InitiatePaymentRequest) ToOrderModel(now time.Time) *orderModel.OrderModel {
	ci := r.CustomerInfo
	o := &orderModel.OrderModel{
		OrderCode:       ci.OrderCode,
		CustomerName:    ci.Name,
		CustomerPhone:   ci.Phone,
		CustomerAddress: ci.Address,
		CustomerEmail:   ci.CustomerEmail,
		OrderDate:       now,
		Status:          orderModel.StatusWaiting,
		GrossAmount:     r.PaymentDetails.Price,
	}
	if ci.Location != nil {
		o.LocationLatitude = ci.Location.Latitude
		o.LocationLongitude = ci.Location.Longitude
	}
	if md := r.OrderMetadata; md != nil {
		if md.OrderDate != nil && !md.OrderDate.IsZero() {
			o.OrderDate = *md.OrderDate
		}
		if raw := strings.TrimSpace(string(md.DeviceInfo)); raw != "" && raw != "null" {
			o.DeviceInfo = datatypes.JSON(md.DeviceInfo)
		}
	}
	return o
}

// DeviceLabel: deviceInfo versi string untuk chat_sessions.created_by_device.
func (r *InitiatePaymentRequest) DeviceLabel() *string {
	if r.OrderMetadata == nil {
		return nil
	}
	raw := strings.TrimSpace(string(r.OrderMetadata.DeviceInfo))
	if raw == "" || raw == "null" {
		return nil
	}
	var s string
	if err := sonic.Unmarshal(r.OrderMetadata.DeviceInfo, &s); err == nil {
		raw = s
	}
	return &raw
}

/* ===================== Response ===================== */

type InitiatePaymentResponse struct {
	SnapToken   string `json:"snapToken"`
	OrderID     string `json:"orderId"`
	RedirectURL string `json:"redirectUrl"`
}
