package entity

import (
	"testing"
	"time"
)

func TestCoerceTime(t *testing.T) {
	ref := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		name  string
		input any
		want  time.Time
		ok    bool
	}{
		{"time.Time", ref, ref, true},
		{"rfc3339", "2025-03-14T09:26:53Z", ref, true},
		{"rfc3339nano", "2025-03-14T09:26:53.000000000Z", ref, true},
		{"epoch millis float", float64(ref.UnixMilli()), ref, true},
		{"epoch millis int64", ref.UnixMilli(), ref, true},
		{"garbage string", "not a time", time.Time{}, false},
		{"nil", nil, time.Time{}, false},
		{"bool", true, time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CoerceTime(tc.input)
			if ok != tc.ok {
				t.Fatalf("CoerceTime(%v) ok = %v, want %v", tc.input, ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("CoerceTime(%v) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestOrderFromRecord(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec := map[string]any{
		"id":           "ord-1",
		"userId":       "user-1",
		"restaurantId": "rest-1",
		"status":       "confirmed",
		"total":        42.5,
		"createdAt":    float64(created.UnixMilli()),
		"items": []any{
			map[string]any{"name": "Pad Thai", "unitPrice": 14.0, "quantity": 2},
		},
	}

	o, err := OrderFromRecord(rec)
	if err != nil {
		t.Fatalf("OrderFromRecord: %v", err)
	}
	if o.ID != "ord-1" || o.Status != OrderConfirmed || o.Total != 42.5 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v, want %v", o.CreatedAt, created)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", o.Items)
	}
}

func TestOrderFromRecordMissingCreatedAtStaysZero(t *testing.T) {
	o, err := OrderFromRecord(map[string]any{"id": "ord-2", "status": "pending"})
	if err != nil {
		t.Fatalf("OrderFromRecord: %v", err)
	}
	if !o.CreatedAt.IsZero() {
		t.Fatalf("missing createdAt must stay zero, got %v", o.CreatedAt)
	}
}

func TestOrderFromRecordMalformedTimestampStaysZero(t *testing.T) {
	o, err := OrderFromRecord(map[string]any{
		"id":        "ord-3",
		"status":    "pending",
		"createdAt": "definitely-not-a-timestamp",
	})
	if err != nil {
		t.Fatalf("OrderFromRecord: %v", err)
	}
	if !o.CreatedAt.IsZero() {
		t.Fatalf("unparseable createdAt must stay zero, got %v", o.CreatedAt)
	}
}

func TestOrderRecordRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := Order{
		ID:           "ord-9",
		UserID:       "user-9",
		RestaurantID: "rest-9",
		Items:        []LineItem{{Name: "Espresso", UnitPrice: 3, Quantity: 1}},
		Fulfillment:  FulfillmentDelivery,
		Total:        3,
		Status:       OrderPending,
		CreatedAt:    created,
	}

	rec, err := in.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	out, err := OrderFromRecord(rec)
	if err != nil {
		t.Fatalf("OrderFromRecord: %v", err)
	}
	if out.ID != in.ID || out.Status != in.Status || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestBookingFromRecord(t *testing.T) {
	rec := map[string]any{
		"id":             "bkg-1",
		"kind":           "table",
		"date":           "2025-07-04",
		"time":           "19:30",
		"partySize":      4.0,
		"status":         "confirmed",
		"amount":         120.0,
		"paymentStatus":  "paid",
		"customerPhones": []any{"+15550100"},
	}

	b, err := BookingFromRecord(rec)
	if err != nil {
		t.Fatalf("BookingFromRecord: %v", err)
	}
	if b.Kind != BookingTable || b.Status != BookingConfirmed || b.PartySize != 4 {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if !b.CreatedAt.IsZero() {
		t.Fatalf("missing createdAt must stay zero, got %v", b.CreatedAt)
	}
}
