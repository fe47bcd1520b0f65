package aggregate

import "github.com/shopspring/decimal"

// amountSum adds finite amounts as decimals, without rounding or overflow.
// Each amount is taken as the shortest decimal that denotes it, so 0.1 + 0.2
// is 0.3. The zero value is an empty sum.
type amountSum struct {
	d decimal.Decimal
}

func (s *amountSum) add(v float64) {
	s.d = s.d.Add(decimal.NewFromFloat(v))
}

// value returns the float64 nearest to the exact total.
func (s *amountSum) value() float64 {
	f, _ := s.d.Float64()
	return f
}
