package models

import (
	"fmt"
	"strconv"
)

const (
	// DefaultFare is shown for any line or route without a stored price.
	DefaultFare = 500
	// CurrencyUnit is the Burundian franc abbreviation used in fare text.
	CurrencyUnit = "FBU"
	// DefaultLineColor is used for lines stored without a color.
	DefaultLineColor = "#2563EB"
)

// FareOrDefault treats a missing or zero price as DefaultFare.
func FareOrDefault(price *int) int {
	if price == nil || *price == 0 {
		return DefaultFare
	}
	return *price
}

func FormatFare(amount int) string {
	return strconv.Itoa(amount) + " " + CurrencyUnit
}

// FormatDuration renders minutes as "2h 30min", "2h" or "45min".
// A missing or zero duration renders as "".
func FormatDuration(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	h, m := *minutes/60, *minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dmin", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dmin", m)
	}
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int { return &v }

// StringPtr returns nil for "" so optional text columns are stored as null.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
