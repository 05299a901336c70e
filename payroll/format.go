package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders USD with thousands separators: $1,234.50.
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + cents
}

// FormatHours renders 7.5 as "7h 30m" and 8 as "8h".
func FormatHours(hours decimal.Decimal) string {
	h := hours.Floor()
	m := hours.Sub(h).Mul(decimal.NewFromInt(60)).Round(0)
	if m.Equal(decimal.NewFromInt(60)) {
		h = h.Add(decimal.NewFromInt(1))
		m = decimal.Zero
	}
	if m.IsZero() {
		return fmt.Sprintf("%sh", h.String())
	}
	return fmt.Sprintf("%sh %sm", h.String(), m.String())
}
