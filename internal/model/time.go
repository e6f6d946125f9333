package model

import "time"

// TimestampLayout is a fixed-width UTC ISO-8601 layout. Fixed width keeps
// lexicographic order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
