package exporter

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatMoney rounds a currency amount half away from zero to cents
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatFloat rounds v to places decimal places
func FormatFloat(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPercent renders a fraction as a percentage with two decimals
func FormatPercent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Shift(2).StringFixed(2) + "%"
}

// FormatShares renders a share quantity with no decimals
func FormatShares(v float64) string {
	return decimal.NewFromFloat(v).Round(0).String()
}

// FormatInt formats an integer
func FormatInt(i int) string {
	return strconv.Itoa(i)
}

// FormatBool formats a boolean value
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}
