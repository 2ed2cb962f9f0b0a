package dto

import (
	"time"

	"github.com/Additional-Code/bistro/internal/entity"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	RestaurantID    string            `json:"restaurantId"`
	Items           []entity.LineItem `json:"items"`
	FulfillmentType string            `json:"fulfillmentType"`
	Total           float64           `json:"total"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	DeliveryAddress string            `json:"deliveryAddress,omitempty"`
	Status          string            `json:"status"`
	PreviousStatus  string            `json:"previousStatus,omitempty"`
	StatusUpdatedAt time.Time         `json:"statusUpdatedAt"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// FromOrder maps an order entity onto its transport shape. An unknown
// creation time is rendered as "now"; the entity keeps it zero so
// aggregation can exclude it.
func FromOrder(o entity.Order) OrderResponse {
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		RestaurantID:    o.RestaurantID,
		Items:           o.Items,
		FulfillmentType: string(o.Fulfillment),
		Total:           o.Total,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		DeliveryAddress: o.DeliveryAddress,
		Status:          string(o.Status),
		PreviousStatus:  string(o.PreviousStatus),
		StatusUpdatedAt: o.StatusUpdatedAt,
		CreatedAt:       createdAt,
	}
}
