package models

import (
	"gorm.io/datatypes"
)

// CartKind separates the pharmacy and lab carts.
type CartKind string

const (
	CartPharmacy CartKind = "pharmacy"
	CartLab      CartKind = "lab"
)

// Valid reports whether k is a known cart kind.
func (k CartKind) Valid() bool {
	return k == CartPharmacy || k == CartLab
}

// CartItem is one line of a user's cart.
type CartItem struct {
	BaseModel
	UserID   string   `gorm:"size:36;uniqueIndex:idx_cart_line" json:"userId"`
	Kind     CartKind `gorm:"size:20;uniqueIndex:idx_cart_line" json:"kind"`
	ItemID   string   `gorm:"size:36;uniqueIndex:idx_cart_line" json:"itemId"`
	Name     string   `gorm:"size:200" json:"name"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPlaced          OrderStatus = "placed"
	OrderConfirmed       OrderStatus = "confirmed"
	OrderShipped         OrderStatus = "shipped"
	OrderDelivered       OrderStatus = "delivered"
	OrderSampleCollected OrderStatus = "sample_collected"
	OrderCompleted       OrderStatus = "completed"
	OrderCancelled       OrderStatus = "cancelled"
)

// OrderItem is a cart line frozen into an order.
type OrderItem struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is a pharmacy or lab order created at checkout.
type Order struct {
	BaseModel
	Kind            CartKind                       `gorm:"size:20;index" json:"kind"`
	PatientID       string                         `gorm:"size:36;index" json:"patientId"`
	PatientEmail    string                         `gorm:"size:255" json:"patientEmail"`
	PatientName     string                         `gorm:"size:200" json:"patientName"`
	Items           datatypes.JSONSlice[OrderItem] `json:"items"`
	Subtotal        float64                        `json:"subtotal"`
	DeliveryFee     float64                        `json:"deliveryFee"`
	Total           float64                        `json:"total"`
	DeliveryAddress string                         `gorm:"type:text" json:"deliveryAddress"`
	ContactPhone    string                         `gorm:"size:30" json:"contactPhone"`
	CollectionDate  string                         `gorm:"size:10" json:"collectionDate,omitempty"`
	Status          OrderStatus                    `gorm:"size:30;index" json:"status"`
	PaymentStatus   string                         `gorm:"size:20" json:"paymentStatus"`
	ReportURL       string                         `gorm:"size:255" json:"reportUrl,omitempty"`
}
