package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
)

// BinCount is the cached view of one ingredient's pool. Units is the summed
// remaining stock; LiveFragments counts fragments still above zero and is
// kept as a diagnostic only.
type BinCount struct {
	Units         int `json:"units"`
	LiveFragments int `json:"live_fragments"`
}

// Snapshot is one consistent read of all four bins. It is a value; callers
// can hold onto it without synchronization.
type Snapshot struct {
	Buns      BinCount  `json:"buns"`
	Patties   BinCount  `json:"patties"`
	Lettuces  BinCount  `json:"lettuces"`
	Tomatoes  BinCount  `json:"tomatoes"`
	RefreshAt time.Time `json:"refresh_at"`
}

// For returns the count for one kind.
func (s Snapshot) For(k domain.Kind) BinCount {
	switch k {
	case domain.Bun:
		return s.Buns
	case domain.Patty:
		return s.Patties
	case domain.Lettuce:
		return s.Lettuces
	case domain.Tomato:
		return s.Tomatoes
	}
	return BinCount{}
}

// BinCounter caches the last successfully read bin snapshot. Refreshes read
// all four kinds in domain.KindOrder inside one serializable transaction;
// a failed refresh keeps the previous snapshot, which is stale but safe
// because counts are advisory.
type BinCounter struct {
	log    *slog.Logger
	store  FragmentStore
	tracer trace.Tracer

	mu   sync.RWMutex
	snap Snapshot
}

func NewBinCounter(log *slog.Logger, store FragmentStore) *BinCounter {
	return &BinCounter{
		log:    log,
		store:  store,
		tracer: otel.Tracer("bin-counter"),
	}
}

// Current returns the last refreshed snapshot without touching the store.
// Before the first successful refresh all counts are zero.
func (b *BinCounter) Current() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// Refresh re-reads all four bins and returns the resulting snapshot. On a
// store failure the cached snapshot is returned unchanged and a warning is
// logged; the caller cannot tell stale apart from fresh and is not meant to.
func (b *BinCounter) Refresh(ctx context.Context) Snapshot {
	ctx, span := b.tracer.Start(ctx, "RefreshBins")
	defer span.End()

	b.log.Info("refreshing bin counts")

	var next Snapshot
	err := b.store.WithinSerializable(ctx, func(tx FragmentTx) error {
		counts := make(map[domain.Kind]BinCount, len(domain.KindOrder))
		for _, k := range domain.KindOrder {
			units, err := tx.SumStock(ctx, k)
			if err != nil {
				return err
			}
			live, err := tx.CountLive(ctx, k)
			if err != nil {
				return err
			}
			counts[k] = BinCount{Units: units, LiveFragments: live}
		}
		next = Snapshot{
			Buns:      counts[domain.Bun],
			Patties:   counts[domain.Patty],
			Lettuces:  counts[domain.Lettuce],
			Tomatoes:  counts[domain.Tomato],
			RefreshAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		b.log.Warn("bin refresh failed, keeping previous counts", "err", err)
		return b.Current()
	}

	b.mu.Lock()
	b.snap = next
	b.mu.Unlock()
	return next
}
