// Package utils provides common utility functions for AlphaPredict.
package utils

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD formats a dollar amount with thousands separators and two
// decimals, rounding half away from zero (e.g., 1234.5 → "$1,234.50").
func FormatUSD(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()
	s := d.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(s, ".")
	out := "$" + groupThousands(intPart) + "." + frac
	if negative {
		return "-" + out
	}
	return out
}

// FormatCount formats an integer with thousands separators (164000 → "164,000").
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + groupThousands(strconv.FormatInt(-n, 10))
	}
	return groupThousands(strconv.FormatInt(n, 10))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	head := len(digits) % 3
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
