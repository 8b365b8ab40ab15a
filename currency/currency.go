// Package currency formats amounts for display.
package currency

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var inPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders v in rupees with Indian digit grouping and at most two
// fraction digits, e.g. ₹12,34,567.5.
func FormatINR(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = math.Abs(v)
	}
	return sign + "₹" + inPrinter.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}
