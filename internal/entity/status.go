package entity

// OrderStatus enumerates the authoritative order lifecycle states.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// BookingStatus enumerates the booking lifecycle states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderConfirmed: true, OrderCancelled: true},
	OrderConfirmed: {OrderPreparing: true, OrderCancelled: true},
	OrderPreparing: {OrderReady: true, OrderCancelled: true},
	OrderReady:     {OrderDelivered: true, OrderCancelled: true},
	OrderDelivered: {OrderCompleted: true},
	OrderCompleted: {},
	OrderCancelled: {},
}

var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingPending:   {BookingConfirmed: true, BookingCancelled: true},
	BookingConfirmed: {BookingCompleted: true, BookingCancelled: true},
	BookingCompleted: {},
	BookingCancelled: {},
}

// Valid reports whether the status is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether moving to the requested status is legal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderTransitions[s][to]
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// Valid reports whether the status is a known booking status.
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransition reports whether moving to the requested status is legal.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	return bookingTransitions[s][to]
}

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}
