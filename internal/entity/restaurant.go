package entity

// Restaurant is a read-only reference record. The lifecycle subsystem consumes
// it for filtering and aggregation but never mutates it.
type Restaurant struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Open           bool    `json:"open"`
	PricePerPerson float64 `json:"pricePerPerson"`
}

// MenuItem is a read-only menu entry mirrored alongside restaurants.
type MenuItem struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Available    bool    `json:"available"`
}
