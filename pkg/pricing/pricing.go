// Package pricing holds the job total arithmetic. It is pure so the
// same math is used by job CRUD, template spawning, and inventory
// allocation without drift.
package pricing

import "math"

// JobInputs are the pricing fields of a job that feed the total.
type JobInputs struct {
	LaborMinutes   float64
	LaborRate      float64 // per hour
	PartsTotal     float64
	TaxRate        float64 // percent, e.g. 8 means 8%
	DiscountAmount float64
}

// Total computes the job total: labor plus parts minus discount,
// with tax applied to the discounted subtotal.
func Total(in JobInputs) float64 {
	laborTotal := (in.LaborMinutes / 60) * in.LaborRate
	subtotal := laborTotal + in.PartsTotal - in.DiscountAmount
	tax := subtotal * (in.TaxRate / 100)
	return round2(subtotal + tax)
}

// LineSubtotal computes a job part line: unit price times quantity.
func LineSubtotal(unitPrice float64, quantity int) float64 {
	return round2(unitPrice * float64(quantity))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
