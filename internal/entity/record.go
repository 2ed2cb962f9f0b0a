package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Records are the wire form of the document store: plain JSON-ish maps.
// Providers differ in how they serialize time values, so timestamp fields are
// coerced to time.Time on read. A record lacking a creation timestamp decodes
// with a zero CreatedAt: unknown creation time must stay unknown so revenue
// windows can exclude it. Display layers substitute "now" where a concrete
// value is needed.

// CoerceTime converts a provider-native time value to time.Time. It accepts
// time.Time, RFC3339(Nano) strings, and unix-millisecond numbers.
func CoerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, true
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, true
		}
	case float64:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms), true
		}
	}
	return time.Time{}, false
}

func normalizeTimes(rec map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, key := range keys {
		raw, ok := out[key]
		if !ok || raw == nil {
			continue
		}
		if ts, ok := CoerceTime(raw); ok {
			out[key] = ts.Format(time.RFC3339Nano)
		} else {
			delete(out, key)
		}
	}
	return out
}

func decodeRecord(rec map[string]any, out any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func encodeRecord(in any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// OrderFromRecord decodes a stored order record.
func OrderFromRecord(rec map[string]any) (Order, error) {
	var o Order
	if err := decodeRecord(normalizeTimes(rec, "createdAt", "statusUpdatedAt"), &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Record encodes the order for the document store.
func (o Order) Record() (map[string]any, error) {
	return encodeRecord(o)
}

// BookingFromRecord decodes a stored booking record.
func BookingFromRecord(rec map[string]any) (Booking, error) {
	var b Booking
	if err := decodeRecord(normalizeTimes(rec, "createdAt", "statusUpdatedAt"), &b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// Record encodes the booking for the document store.
func (b Booking) Record() (map[string]any, error) {
	return encodeRecord(b)
}

// RestaurantFromRecord decodes a stored restaurant record.
func RestaurantFromRecord(rec map[string]any) (Restaurant, error) {
	var r Restaurant
	err := decodeRecord(rec, &r)
	return r, err
}

// MenuItemFromRecord decodes a stored menu item record.
func MenuItemFromRecord(rec map[string]any) (MenuItem, error) {
	var m MenuItem
	err := decodeRecord(rec, &m)
	return m, err
}
