// Package billing holds the pure money math for membership charges.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// prorationCutoffDay is the last day of the month that still pays the
// full fee. Joining after it pays half.
const prorationCutoffDay = 15

// ProratedCharge returns the amount due in minor currency units for a
// membership period starting at ref. Subscribers joining in the first
// half of the month (day <= 15) pay the full base fee; later joiners pay
// half, rounded half away from zero on cents.
func ProratedCharge(baseFeeCents int64, ref time.Time) int64 {
	if ref.Day() <= prorationCutoffDay {
		return baseFeeCents
	}
	half := decimal.NewFromInt(baseFeeCents).Div(decimal.NewFromInt(2))
	return half.Round(0).IntPart()
}
