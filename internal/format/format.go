// Package format holds the pure display helpers the rendering layer uses.
// Everything here is deterministic and locale-pinned: output never depends
// on the host locale.
package format

import (
	"fmt"
	"math"
	"strings"
)

var currencySymbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Price renders a price with its currency symbol, two decimals and
// thousands separators: Price(1234567.891, "NGN") == "₦1,234,567.89".
// Unknown currency codes are used as a prefix: "XOF 12.00".
func Price(v float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	sym, ok := currencySymbols[code]
	if !ok {
		if code == "" {
			sym = ""
		} else {
			sym = code + " "
		}
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + sym + group(fmt.Sprintf("%.2f", v))
}

// PercentChange renders a percent move with an explicit sign:
// PercentChange(-3.456) == "-3.46%", PercentChange(0) == "+0.00%".
func PercentChange(v float64) string {
	if v == 0 || math.IsNaN(v) {
		// covers negative zero too; %+f would print "-0.00%"
		return "+0.00%"
	}
	return fmt.Sprintf("%+.2f%%", v)
}

// LargeNumber abbreviates volumes and market caps:
// LargeNumber(1_500_000) == "1.50M". Values below one thousand are
// rendered as plain integers.
func LargeNumber(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e12:
		return sign + fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return sign + fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return sign + fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return sign + fmt.Sprintf("%.2fK", v/1e3)
	default:
		return sign + fmt.Sprintf("%.0f", v)
	}
}

// group inserts comma separators into the integer part of a fixed-point
// decimal string ("1234567.89" -> "1,234,567.89").
func group(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		if frac == "" {
			return intPart
		}
		return intPart + "." + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac == "" {
		return b.String()
	}
	return b.String() + "." + frac
}
