package application

import (
	"context"
	"errors"

	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
)

// ErrShortStock is returned by FragmentTx.Decrement when the kind's pool
// cannot cover the requested units. The transaction must then be aborted.
var ErrShortStock = errors.New("short stock")

// FragmentStore is the transactional keyed-counter store backing the bins.
type FragmentStore interface {
	// WithinSerializable runs fn inside one serializable transaction and
	// commits it iff fn returns nil. Any error from fn rolls everything back.
	WithinSerializable(ctx context.Context, fn func(tx FragmentTx) error) error

	// RecordEvent appends an outbox event in its own small transaction.
	// Used for outcomes whose reservation transaction has already rolled back.
	RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error
}

// FragmentTx is the per-transaction view of the store. Callers touching more
// than one kind must issue calls in domain.KindOrder.
type FragmentTx interface {
	// SumStock returns the total remaining units for a kind.
	SumStock(ctx context.Context, k domain.Kind) (int, error)

	// CountLive returns the number of fragments still holding stock.
	CountLive(ctx context.Context, k domain.Kind) (int, error)

	// Decrement consumes units from the kind's fragments in fragment-id
	// order and reports what was taken from each. Returns ErrShortStock
	// when the pool cannot cover the request; the caller aborts the
	// transaction and no partial consumption survives.
	Decrement(ctx context.Context, k domain.Kind, units int) ([]domain.Consumed, error)

	// RecordEvent appends an outbox event inside this transaction, so it
	// commits or rolls back together with the decrements.
	RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error
}
