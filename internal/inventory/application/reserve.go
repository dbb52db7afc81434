package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
)

var (
	// ErrInvalidOrder rejects malformed orders before any transaction opens.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrStoreUnavailable wraps transaction and connection failures. The
	// reservation aborted; nothing was consumed.
	ErrStoreUnavailable = errors.New("fragment store unavailable")
)

const (
	EventReservationCommitted = "ReservationCommitted"
	EventReservationRejected  = "ReservationRejected"
)

// Coordinator serializes multi-kind stock reservations. Each reservation is
// one serializable transaction that decrements kinds in domain.KindOrder and
// either commits all four decrements or none of them.
type Coordinator struct {
	log    *slog.Logger
	store  FragmentStore
	tracer trace.Tracer
}

func NewCoordinator(log *slog.Logger, store FragmentStore) *Coordinator {
	return &Coordinator{
		log:    log,
		store:  store,
		tracer: otel.Tracer("reservation-coordinator"),
	}
}

// Reserve atomically consumes the order's ingredient units. On success the
// returned reservation lists the consumed fragments per kind. On failure no
// stock change persists: insufficient stock surfaces as
// domain.InsufficientStockError, anything else wraps ErrStoreUnavailable.
func (c *Coordinator) Reserve(ctx context.Context, o domain.Order, traceparent string) (domain.Reservation, error) {
	ctx, span := c.tracer.Start(ctx, "Reserve")
	defer span.End()

	if err := o.Validate(); err != nil {
		return domain.Reservation{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	res := domain.Reservation{
		ID:       uuid.NewString(),
		Consumed: make(map[domain.Kind][]domain.Consumed, len(domain.KindOrder)),
	}

	err := c.store.WithinSerializable(ctx, func(tx FragmentTx) error {
		for _, k := range domain.KindOrder {
			units := o.UnitsFor(k)
			if units == 0 {
				continue
			}
			consumed, err := tx.Decrement(ctx, k, units)
			if err != nil {
				if errors.Is(err, ErrShortStock) {
					avail, sumErr := tx.SumStock(ctx, k)
					if sumErr != nil {
						avail = -1
					}
					return domain.InsufficientStockError{Kind: k, Requested: units, Available: avail}
				}
				return err
			}
			res.Consumed[k] = consumed
		}
		payload, err := json.Marshal(domain.ReservationCommitted{
			ReservationID: res.ID,
			Consumed:      res.Consumed,
		})
		if err != nil {
			return err
		}
		return tx.RecordEvent(ctx, res.ID, EventReservationCommitted, payload, traceparent)
	})
	if err == nil {
		c.log.Info("reservation committed", "reservation_id", res.ID, "order", o.String())
		return res, nil
	}

	var short domain.InsufficientStockError
	if errors.As(err, &short) {
		c.log.Info("reservation rejected", "reservation_id", res.ID, "kind", short.Kind, "requested", short.Requested)
		c.recordRejection(ctx, res.ID, short.Kind, short.Error(), traceparent)
		return domain.Reservation{}, short
	}

	c.log.Error("reservation aborted on store failure", "reservation_id", res.ID, "err", err)
	return domain.Reservation{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// recordRejection writes the rejected event outside the reservation
// transaction, which has already rolled back. Best effort.
func (c *Coordinator) recordRejection(ctx context.Context, id string, kind domain.Kind, reason, traceparent string) {
	payload, err := json.Marshal(domain.ReservationRejected{
		ReservationID: id,
		Kind:          kind,
		Reason:        reason,
	})
	if err != nil {
		return
	}
	if err := c.store.RecordEvent(ctx, id, EventReservationRejected, payload, traceparent); err != nil {
		c.log.Warn("rejection event not recorded", "reservation_id", id, "err", err)
	}
}
