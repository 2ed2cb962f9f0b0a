package entity

import "time"

// FulfillmentType distinguishes delivery orders from pickup orders.
type FulfillmentType string

const (
	FulfillmentDelivery FulfillmentType = "delivery"
	FulfillmentPickup   FulfillmentType = "pickup"
)

// LineItem is a single priced entry on an order.
type LineItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Order represents a food order tracked by the lifecycle subsystem. Ids are
// assigned by the store on creation. Total is immutable after creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	RestaurantID    string          `json:"restaurantId"`
	Items           []LineItem      `json:"items"`
	Fulfillment     FulfillmentType `json:"fulfillmentType"`
	Total           float64         `json:"total"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	PaymentID       string          `json:"paymentId,omitempty"`
	Status          OrderStatus     `json:"status"`
	PreviousStatus  OrderStatus     `json:"previousStatus,omitempty"`
	StatusUpdatedAt time.Time       `json:"statusUpdatedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}
