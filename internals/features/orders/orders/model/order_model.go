package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ================================
   ENUM mirror (harus cocok dgn DB)
================================ */

type OrderStatus string

const (
	StatusWaiting    OrderStatus = "Menunggu"
	StatusProcessing OrderStatus = "Sedang diproses"
	StatusShipping   OrderStatus = "Dikirim"
	StatusReceived   OrderStatus = "Diterima"
	StatusCancelled  OrderStatus = "Batal"
)

/* ================================
   MODEL: orders
================================ */

type OrderModel struct {
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;primaryKey" json:"order_id"`
	OrderCode string    `gorm:"column:order_code;type:varchar(100);not null;uniqueIndex" json:"order_code"`

	CustomerName    string  `gorm:"column:customer_name;type:varchar(120);not null" json:"customer_name"`
	CustomerPhone   string  `gorm:"column:customer_phone;type:varchar(20);not null;index" json:"customer_phone"`
	CustomerAddress string  `gorm:"column:customer_address;type:text;not null" json:"customer_address"`
	CustomerEmail   *string `gorm:"column:customer_email;type:varchar(255)" json:"customer_email,omitempty"`

	LocationLatitude  *float64 `gorm:"column:location_latitude" json:"location_latitude,omitempty"`
	LocationLongitude *float64 `gorm:"column:location_longitude" json:"location_longitude,omitempty"`

	OrderDate  time.Time      `gorm:"column:order_date;not null" json:"order_date"`
	DeviceInfo datatypes.JSON `gorm:"column:device_info" json:"device_info,omitempty"`

	Status      OrderStatus `gorm:"column:status;type:varchar(30);not null;default:'Menunggu'" json:"status"`
	GrossAmount int64       `gorm:"column:gross_amount;not null" json:"gross_amount"`
	PaymentType *string     `gorm:"column:payment_type;type:varchar(50)" json:"payment_type,omitempty"`
	VANumber    *string     `gorm:"column:va_number;type:varchar(64)" json:"va_number,omitempty"`
	SnapToken   *string     `gorm:"column:snap_token;type:text" json:"-"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID;references:OrderID" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (OrderModel) TableName() string { return "orders" }

func (o *OrderModel) BeforeCreate(tx *gorm.DB) error {
	if o.OrderID == uuid.Nil {
		o.OrderID = uuid.New()
	}
	return nil
}

/* ================================
   MODEL: order_items (snapshot, tidak pernah di-update)
================================ */

type OrderItemModel struct {
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;primaryKey" json:"order_item_id"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID   int       `gorm:"column:product_id;not null" json:"product_id"`
	Quantity    int       `gorm:"column:quantity;not null;check:quantity > 0" json:"quantity"`
	Price       int64     `gorm:"column:price;not null;check:price >= 0" json:"price"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrderItemModel) TableName() string { return "order_items" }

func (i *OrderItemModel) BeforeCreate(tx *gorm.DB) error {
	if i.OrderItemID == uuid.Nil {
		i.OrderItemID = uuid.New()
	}
	return nil
}

/* ================================
   Broadcast payload (orders_update)
================================ */

const (
	UpdateNewOrder      = "new_order"
	UpdateStatusChanged = "status_changed"
)

type OrderUpdate struct {
	Type      string      `json:"type"`
	OrderID   uuid.UUID   `json:"order_id"`
	OrderCode string      `json:"order_code"`
	Status    OrderStatus `json:"status"`
}
