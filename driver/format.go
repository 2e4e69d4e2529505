package driver

import "github.com/shopspring/decimal"

// FormatNumber renders a numeric command argument with a fixed number of
// decimal places and without exponent notation, which some firmwares refuse
// to parse.
func FormatNumber(value float64, places int32) string {
	return decimal.NewFromFloat(value).Round(places).String()
}
