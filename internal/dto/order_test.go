package dto

import (
	"testing"
	"time"

	"github.com/Additional-Code/bistro/internal/entity"
)

func TestFromOrderRendersUnknownCreationTimeAsNow(t *testing.T) {
	before := time.Now()
	resp := FromOrder(entity.Order{ID: "ord-1", Status: entity.OrderPending})
	if resp.CreatedAt.Before(before) {
		t.Fatalf("zero createdAt must render as now, got %v", resp.CreatedAt)
	}
}

func TestFromOrderKeepsKnownCreationTime(t *testing.T) {
	created := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	resp := FromOrder(entity.Order{ID: "ord-1", CreatedAt: created})
	if !resp.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v, want %v", resp.CreatedAt, created)
	}
}

func TestFromBookingRendersUnknownCreationTimeAsNow(t *testing.T) {
	before := time.Now()
	resp := FromBooking(entity.Booking{ID: "bkg-1", Status: entity.BookingPending})
	if resp.CreatedAt.Before(before) {
		t.Fatalf("zero createdAt must render as now, got %v", resp.CreatedAt)
	}
}
