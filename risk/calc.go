package risk

import "github.com/shopspring/decimal"

// exceeds reports whether prospective is strictly above limit, and by how
// much. A non-positive limit never triggers.
func exceeds(prospective, limit decimal.Decimal) (bool, decimal.Decimal) {
	if !limit.IsPositive() {
		return false, decimal.Zero
	}
	if prospective.GreaterThan(limit) {
		return true, prospective.Sub(limit)
	}
	return false, decimal.Zero
}

// Headroom returns how much more can be booked under limit given current
// exposure. Unbounded limits report ok == false.
func Headroom(current, limit decimal.Decimal) (room decimal.Decimal, ok bool) {
	if !limit.IsPositive() {
		return decimal.Zero, false
	}
	room = limit.Sub(current)
	if room.IsNegative() {
		return decimal.Zero, true
	}
	return room, true
}

// Utilization returns current/limit, or zero for an unbounded limit.
func Utilization(current, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return current.Div(limit)
}
