package usecase

import "strings"

// StandardPrice converts a (price, quantity, unit) triple into a price per
// standard unit (one kilogram or one liter) so products in different
// package sizes compare fairly.
//
// Quantities expressed in a sub-kilo/sub-liter denomination (grams,
// milliliters) are scaled by 1000; everything else (kg, lt, per-each) is
// already on the standard basis and divides directly.
//
// A zero or negative price or quantity yields 0.0: "unpriced", never a
// division fault. Callers must not treat 0.0 as a comparable value.
func StandardPrice(price, quantity float64, unit string) float64 {
	if price <= 0 || quantity <= 0 {
		return 0.0
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "gr", "g", "ml":
		return (price / quantity) * 1000
	}
	return price / quantity
}
