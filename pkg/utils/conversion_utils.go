package utils

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// StrToInt64 converts a string to an int64.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

// FormatMoney renders a monetary amount with two-digit rounding.
// Rounding happens only here, at display time; internal arithmetic stays exact.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
