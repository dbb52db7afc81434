package domain

import "fmt"

// Order is a customer's request for reserved ingredients.
type Order struct {
	// Standard burgers: 1x bun, 1x patty, 1x lettuce, 1x tomato.
	Standards int
	// Double burgers: 1x bun, 2x patty, 1x lettuce, 1x tomato.
	Doubles int
	// Minimalist burgers: 1x bun, 1x patty.
	Minimalists int
	// Salads: 2x lettuce, 2x tomato.
	Salads int
}

// Validate rejects orders with negative line counts.
func (o Order) Validate() error {
	if o.Standards < 0 || o.Doubles < 0 || o.Minimalists < 0 || o.Salads < 0 {
		return fmt.Errorf("order line counts must be non-negative: %s", o)
	}
	return nil
}

// UnitsFor returns how many units of the given ingredient this order needs.
func (o Order) UnitsFor(k Kind) int {
	switch k {
	case Bun:
		return o.Standards + o.Doubles + o.Minimalists
	case Patty:
		return o.Standards + 2*o.Doubles + o.Minimalists
	case Lettuce:
		return o.Standards + o.Doubles + 2*o.Salads
	case Tomato:
		return o.Standards + o.Doubles + 2*o.Salads
	default:
		return 0
	}
}

// Empty reports whether the order needs no ingredients at all.
func (o Order) Empty() bool {
	for _, k := range KindOrder {
		if o.UnitsFor(k) > 0 {
			return false
		}
	}
	return true
}

func (o Order) String() string {
	return fmt.Sprintf("<Order standards=%d doubles=%d minimalists=%d salads=%d>",
		o.Standards, o.Doubles, o.Minimalists, o.Salads)
}
