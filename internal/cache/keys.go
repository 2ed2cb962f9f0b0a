package cache

import "fmt"

// Key formats for entity status lookups. Kept here so the service and the
// worker warm the same keys.
const (
	keyOrderStatus   = "orders:status:%s"
	keyBookingStatus = "bookings:status:%s"
)

// OrderStatusKey returns the cache key holding an order's latest status.
func OrderStatusKey(id string) string {
	return fmt.Sprintf(keyOrderStatus, id)
}

// BookingStatusKey returns the cache key holding a booking's latest status.
func BookingStatusKey(id string) string {
	return fmt.Sprintf(keyBookingStatus, id)
}
