package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is displayed wherever upstream did not supply a figure.
const NotAvailable = "N/A"

// FormatRupees formats an amount as Indian rupees with lakh/crore grouping,
// e.g. 1234567.8 -> "₹12,34,567.80".
func FormatRupees(v decimal.Decimal) string {
	negative := v.IsNegative()
	s := v.Abs().StringFixed(2)

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i:]
	}

	out := "₹" + groupIndian(whole) + frac
	if negative {
		return "-" + out
	}
	return out
}

// groupIndian inserts separators after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	parts = append(parts, tail)
	return strings.Join(parts, ",")
}

// FormatSignedPct formats a percentage with a +/- prefix, or N/A when absent.
func FormatSignedPct(v decimal.NullDecimal) string {
	if !v.Valid {
		return NotAvailable
	}
	if v.Decimal.IsPositive() {
		return "+" + v.Decimal.StringFixed(2) + "%"
	}
	return v.Decimal.StringFixed(2) + "%"
}

// FormatRange returns the upstream range string, or N/A when empty.
func FormatRange(r string) string {
	if strings.TrimSpace(r) == "" {
		return NotAvailable
	}
	return r
}
