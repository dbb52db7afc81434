package application

import (
	"context"
	"errors"
	"sync"

	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
)

var errStoreDown = errors.New("store down")

type recordedEvent struct {
	aggregateID string
	eventType   string
	payload     []byte
	inTx        bool
}

// fakeStore is an in-memory FragmentStore. A mutex serializes transactions,
// which is exactly the observable behavior serializable isolation promises;
// fn runs against a copy that only replaces the live state on commit.
type fakeStore struct {
	mu     sync.Mutex
	stock  map[domain.Kind][]domain.Fragment
	events []recordedEvent
	down   bool

	// kinds decremented by the most recent transaction, in call order.
	lastDecrements []domain.Kind
}

func newFakeStore(perFragment ...int) *fakeStore {
	s := &fakeStore{stock: make(map[domain.Kind][]domain.Fragment)}
	for _, k := range domain.KindOrder {
		for i, units := range perFragment {
			s.stock[k] = append(s.stock[k], domain.Fragment{ID: i + 1, Stock: units})
		}
	}
	return s
}

func (s *fakeStore) setStock(k domain.Kind, fragments ...domain.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[k] = fragments
}

func (s *fakeStore) totalStock(k domain.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, f := range s.stock[k] {
		total += f.Stock
	}
	return total
}

func (s *fakeStore) totals() map[domain.Kind]int {
	out := make(map[domain.Kind]int, len(domain.KindOrder))
	for _, k := range domain.KindOrder {
		out[k] = s.totalStock(k)
	}
	return out
}

func (s *fakeStore) WithinSerializable(ctx context.Context, fn func(tx FragmentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errStoreDown
	}

	working := make(map[domain.Kind][]domain.Fragment, len(s.stock))
	for k, fragments := range s.stock {
		working[k] = append([]domain.Fragment(nil), fragments...)
	}

	tx := &fakeTx{stock: working}
	if err := fn(tx); err != nil {
		return err
	}

	s.stock = working
	s.events = append(s.events, tx.events...)
	s.lastDecrements = tx.decrements
	return nil
}

func (s *fakeStore) RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errStoreDown
	}
	s.events = append(s.events, recordedEvent{
		aggregateID: aggregateID,
		eventType:   eventType,
		payload:     payload,
	})
	return nil
}

type fakeTx struct {
	stock      map[domain.Kind][]domain.Fragment
	events     []recordedEvent
	decrements []domain.Kind
}

func (t *fakeTx) SumStock(ctx context.Context, k domain.Kind) (int, error) {
	total := 0
	for _, f := range t.stock[k] {
		total += f.Stock
	}
	return total, nil
}

func (t *fakeTx) CountLive(ctx context.Context, k domain.Kind) (int, error) {
	live := 0
	for _, f := range t.stock[k] {
		if f.Stock > 0 {
			live++
		}
	}
	return live, nil
}

func (t *fakeTx) Decrement(ctx context.Context, k domain.Kind, units int) ([]domain.Consumed, error) {
	t.decrements = append(t.decrements, k)

	available, _ := t.SumStock(ctx, k)
	if available < units {
		return nil, ErrShortStock
	}

	var consumed []domain.Consumed
	remaining := units
	for i := range t.stock[k] {
		f := &t.stock[k][i]
		if remaining == 0 {
			break
		}
		if f.Stock == 0 {
			continue
		}
		take := f.Stock
		if take > remaining {
			take = remaining
		}
		f.Stock -= take
		remaining -= take
		consumed = append(consumed, domain.Consumed{FragmentID: f.ID, Units: take})
	}
	return consumed, nil
}

func (t *fakeTx) RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error {
	t.events = append(t.events, recordedEvent{
		aggregateID: aggregateID,
		eventType:   eventType,
		payload:     payload,
		inTx:        true,
	})
	return nil
}
