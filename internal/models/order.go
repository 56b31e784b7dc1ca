package models

import (
	"time"
)

// Order represents a customer order with its line items
type Order struct {
	OrderID       int64          `db:"order_id" json:"orderId"`
	CustomerName  string         `db:"customer_name" json:"customerName"`
	ContactNumber string         `db:"contact_number" json:"contactNumber"`
	District      string         `db:"district" json:"district"`
	Transport     string         `db:"transport" json:"transport"`
	Status        string         `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	Products      []OrderProduct `json:"products"`
}

// OrderProduct is one line item of an order
type OrderProduct struct {
	ProductID int64  `db:"product_id" json:"productId"`
	Micron    int    `db:"micron" json:"micron"`
	Meter     int    `db:"meter" json:"meter"`
	Size      string `db:"size" json:"size"`
	Color     string `db:"color" json:"color"`
	Nos       string `db:"nos" json:"nos"`
	Unit      string `db:"unit" json:"unit"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
)

// DefaultUnit is applied to line items submitted without a unit
const DefaultUnit = "Pcs"

// NewOrder creates an order ready for insertion; the store assigns the id and
// creation timestamp
func NewOrder(customerName, contactNumber, district, transport string, products []OrderProduct) *Order {
	for i := range products {
		if products[i].Unit == "" {
			products[i].Unit = DefaultUnit
		}
	}

	return &Order{
		CustomerName:  customerName,
		ContactNumber: contactNumber,
		District:      district,
		Transport:     transport,
		Status:        string(OrderStatusPending),
		Products:      products,
	}
}
