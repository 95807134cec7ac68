package utils

import (
	"fmt"
	"math"
)

// PercentOf returns rate percent of amount in minor units, rounded half away from zero.
func PercentOf(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate / 100))
}

// FormatMoney renders minor units as a decimal string, e.g. 1234 -> "12.34".
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
