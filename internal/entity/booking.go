package entity

import "time"

// BookingKind distinguishes table reservations from event bookings.
type BookingKind string

const (
	BookingTable BookingKind = "table"
	BookingEvent BookingKind = "event"
)

// PaymentStatus reflects the advance-payment state recorded on a booking.
// Payment confirmation happens upstream; this subsystem only records it.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Booking represents a table or event booking. Amount is the advance deposit,
// not the full order value.
type Booking struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	RestaurantID    string         `json:"restaurantId"`
	Kind            BookingKind    `json:"kind"`
	Date            string         `json:"date"`
	Time            string         `json:"time"`
	PartySize       int            `json:"partySize"`
	CustomerName    string         `json:"customerName"`
	CustomerPhones  []string       `json:"customerPhones"`
	Amount          float64        `json:"amount"`
	PaymentStatus   PaymentStatus  `json:"paymentStatus"`
	PaymentID       string         `json:"paymentId,omitempty"`
	SpecialRequests string         `json:"specialRequests,omitempty"`
	Occasion        string         `json:"occasion,omitempty"`
	SelectedItems   map[string]int `json:"selectedItems,omitempty"`
	Status          BookingStatus  `json:"status"`
	PreviousStatus  BookingStatus  `json:"previousStatus,omitempty"`
	StatusUpdatedAt time.Time      `json:"statusUpdatedAt"`
	CreatedAt       time.Time      `json:"createdAt"`
}
