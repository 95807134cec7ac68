package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random UUID v4 string used as a primary key.
func NewID() string {
	return uuid.NewString()
}

// DocumentNumber formats a human facing number such as ORD-20261018-0007.
func DocumentNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, DayKey(day), seq)
}

// SequenceName scopes a counter to a prefix and business day so numbering restarts daily.
func SequenceName(prefix string, day time.Time) string {
	return prefix + ":" + DayKey(day)
}
