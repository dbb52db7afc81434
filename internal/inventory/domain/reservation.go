package domain

import "fmt"

// Reservation is the committed outcome of an atomic multi-kind decrement.
type Reservation struct {
	ID       string
	Consumed map[Kind][]Consumed
}

// TotalFor sums the units this reservation consumed for one kind.
func (r Reservation) TotalFor(k Kind) int {
	total := 0
	for _, c := range r.Consumed[k] {
		total += c.Units
	}
	return total
}

// InsufficientStockError reports the first kind that could not satisfy a
// reservation. The whole reservation rolled back; nothing was consumed.
type InsufficientStockError struct {
	Kind      Kind
	Requested int
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient %s stock: requested %d, available %d",
		e.Kind, e.Requested, e.Available)
}
