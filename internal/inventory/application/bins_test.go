package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
	"github.com/robmcl4/howveyoubin/pkg/logging"
)

func TestBinCounterStartsZeroed(t *testing.T) {
	bins := NewBinCounter(logging.New(), newFakeStore(100, 100, 100))

	snap := bins.Current()
	for _, k := range domain.KindOrder {
		assert.Zero(t, snap.For(k).Units)
		assert.Zero(t, snap.For(k).LiveFragments)
	}
	assert.True(t, snap.RefreshAt.IsZero())
}

func TestRefreshReadsAllFourBins(t *testing.T) {
	store := newFakeStore(100, 100, 100)
	store.setStock(domain.Tomato,
		domain.Fragment{ID: 1, Stock: 40},
		domain.Fragment{ID: 2, Stock: 0},
		domain.Fragment{ID: 3, Stock: 2},
	)
	bins := NewBinCounter(logging.New(), store)

	snap := bins.Refresh(context.Background())

	assert.Equal(t, BinCount{Units: 300, LiveFragments: 3}, snap.Buns)
	assert.Equal(t, BinCount{Units: 300, LiveFragments: 3}, snap.Patties)
	assert.Equal(t, BinCount{Units: 300, LiveFragments: 3}, snap.Lettuces)
	assert.Equal(t, BinCount{Units: 42, LiveFragments: 2}, snap.Tomatoes)
	assert.False(t, snap.RefreshAt.IsZero())

	assert.Equal(t, snap, bins.Current())
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	store := newFakeStore(50)
	bins := NewBinCounter(logging.New(), store)

	fresh := bins.Refresh(context.Background())
	require.Equal(t, 50, fresh.Buns.Units)

	store.down = true
	store.setStock(domain.Bun, domain.Fragment{ID: 1, Stock: 7})

	stale := bins.Refresh(context.Background())
	assert.Equal(t, fresh, stale, "failed refresh serves the last good snapshot")
	assert.Equal(t, fresh, bins.Current())
}

func TestRefreshTracksReservations(t *testing.T) {
	store := newFakeStore(100, 100, 100)
	bins := NewBinCounter(logging.New(), store)
	coord := NewCoordinator(logging.New(), store)

	before := bins.Refresh(context.Background())
	require.Equal(t, 300, before.Buns.Units)

	res, err := coord.Reserve(context.Background(), domain.Order{Standards: 1, Doubles: 2}, "")
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalFor(domain.Bun))
	require.Equal(t, 5, res.TotalFor(domain.Patty))

	after := bins.Refresh(context.Background())
	assert.Equal(t, 297, after.Buns.Units)
	assert.Equal(t, 295, after.Patties.Units)
	assert.Equal(t, 297, after.Lettuces.Units)
	assert.Equal(t, 297, after.Tomatoes.Units)
}
