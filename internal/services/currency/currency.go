// Package currency maps preference currency codes to display symbols.
package currency

import (
	"strconv"

	"github.com/Rhymond/go-money"
)

// Codes with a dedicated symbol. Everything else, USD included, renders as "$".
var symbolic = map[string]bool{
	money.EUR: true,
	money.GBP: true,
	money.INR: true,
}

// Symbol returns the display symbol for a currency code.
func Symbol(code string) string {
	if symbolic[code] {
		if c := money.GetCurrency(code); c != nil {
			return c.Grapheme
		}
	}
	return "$"
}

// Format renders a chart value as <symbol><value> for axis ticks and tooltips.
func Format(code string, value float64) string {
	return Symbol(code) + strconv.FormatFloat(value, 'f', -1, 64)
}
