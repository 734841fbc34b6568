package models

import "time"

// TimeLayout is the wire format for booking timestamps. Second resolution,
// no zone suffix; values are always UTC.
const TimeLayout = "2006-01-02T15:04:05"

// BookingStatus is the persisted lifecycle stage of a booking.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// Booking reserves an item for a [start, end] interval. Start and end are
// fixed at creation; only Status changes afterwards, exactly once.
type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`

	// Filled by store joins for projections, not persisted on the booking row.
	ItemName   string `json:"item_name,omitempty"`
	BookerName string `json:"booker_name,omitempty"`
}

// FormatTime renders t in the booking wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a booking timestamp in the wire format.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
