package worksheet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses a cell value as a decimal number. It tolerates the
// formatting estimating tools export: thousands separated by spaces,
// non-breaking spaces or dots, comma as the decimal separator.
func ParseNumber(v string) (decimal.Decimal, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, false
	}

	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, " ", "")
	// The rightmost of comma and dot is the decimal separator; the other is
	// a thousands separator ("1.200,50" vs "1,200.50").
	switch {
	case strings.Contains(v, ",") && strings.Contains(v, "."):
		if strings.LastIndex(v, ",") > strings.LastIndex(v, ".") {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.ReplaceAll(v, ",", ".")
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case strings.Contains(v, ","):
		v = strings.ReplaceAll(v, ",", ".")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
