package dto

import (
	"time"

	"github.com/Additional-Code/bistro/internal/entity"
)

// BookingResponse represents a booking as exposed via transport layers.
type BookingResponse struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	RestaurantID    string         `json:"restaurantId"`
	Kind            string         `json:"kind"`
	Date            string         `json:"date"`
	Time            string         `json:"time"`
	PartySize       int            `json:"partySize"`
	CustomerName    string         `json:"customerName"`
	CustomerPhones  []string       `json:"customerPhones"`
	Amount          float64        `json:"amount"`
	PaymentStatus   string         `json:"paymentStatus"`
	SpecialRequests string         `json:"specialRequests,omitempty"`
	Occasion        string         `json:"occasion,omitempty"`
	SelectedItems   map[string]int `json:"selectedItems,omitempty"`
	Status          string         `json:"status"`
	PreviousStatus  string         `json:"previousStatus,omitempty"`
	StatusUpdatedAt time.Time      `json:"statusUpdatedAt"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// FromBooking maps a booking entity onto its transport shape. An unknown
// creation time is rendered as "now", as with orders.
func FromBooking(b entity.Booking) BookingResponse {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		RestaurantID:    b.RestaurantID,
		Kind:            string(b.Kind),
		Date:            b.Date,
		Time:            b.Time,
		PartySize:       b.PartySize,
		CustomerName:    b.CustomerName,
		CustomerPhones:  b.CustomerPhones,
		Amount:          b.Amount,
		PaymentStatus:   string(b.PaymentStatus),
		SpecialRequests: b.SpecialRequests,
		Occasion:        b.Occasion,
		SelectedItems:   b.SelectedItems,
		Status:          string(b.Status),
		PreviousStatus:  string(b.PreviousStatus),
		StatusUpdatedAt: b.StatusUpdatedAt,
		CreatedAt:       createdAt,
	}
}
