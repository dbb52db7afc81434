package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robmcl4/howveyoubin/internal/inventory/application"
	"github.com/robmcl4/howveyoubin/internal/inventory/domain"
)

// seed fixtures: 3 fragments of 100 units per kind.
const (
	seedFragments     = 3
	seedFragmentStock = 100
)

// Store keeps every kind's fragments in one fragments table keyed by kind
// and implements application.FragmentStore on serializable pgx transactions.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{
		log:  log,
		pool: pool,
	}
}

// EnsureSchema creates the fragments and outbox tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS fragments (
		kind TEXT NOT NULL,
		fragment_id INT NOT NULL,
		stock INT NOT NULL CHECK (stock >= 0),
		PRIMARY KEY (kind, fragment_id)
	)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS outbox (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload JSONB NOT NULL,
		traceparent TEXT,
		status TEXT NOT NULL,
		relay_id TEXT,
		lease_until TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

// Seed loads the provisioning fixtures. Already-present fragments are left
// alone, so a restart never resets live stock.
func (s *Store) Seed(ctx context.Context) error {
	for _, k := range domain.KindOrder {
		for id := 1; id <= seedFragments; id++ {
			_, err := s.pool.Exec(ctx, `INSERT INTO fragments (kind, fragment_id, stock)
				VALUES ($1, $2, $3)
				ON CONFLICT (kind, fragment_id) DO NOTHING`,
				string(k), id, seedFragmentStock)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) WithinSerializable(ctx context.Context, fn func(tx application.FragmentTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(fragmentTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error {
	return insertOutbox(ctx, s.pool, aggregateID, eventType, payload, traceparent)
}

type fragmentTx struct {
	tx pgx.Tx
}

func (t fragmentTx) SumStock(ctx context.Context, k domain.Kind) (int, error) {
	var units int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(stock), 0) FROM fragments WHERE kind = $1`,
		string(k)).Scan(&units)
	return units, err
}

func (t fragmentTx) CountLive(ctx context.Context, k domain.Kind) (int, error) {
	var live int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM fragments WHERE kind = $1 AND stock > 0`,
		string(k)).Scan(&live)
	return live, err
}

// Decrement locks the kind's live fragments in fragment-id order, then
// drains them oldest-id first. The availability check happens before any
// update, so a short pool leaves the transaction clean for further reads.
func (t fragmentTx) Decrement(ctx context.Context, k domain.Kind, units int) ([]domain.Consumed, error) {
	rows, err := t.tx.Query(ctx, `SELECT fragment_id, stock FROM fragments
		WHERE kind = $1 AND stock > 0
		ORDER BY fragment_id
		FOR UPDATE`, string(k))
	if err != nil {
		return nil, err
	}

	var fragments []domain.Fragment
	for rows.Next() {
		var f domain.Fragment
		if err := rows.Scan(&f.ID, &f.Stock); err != nil {
			rows.Close()
			return nil, err
		}
		fragments = append(fragments, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	available := 0
	for _, f := range fragments {
		available += f.Stock
	}
	if available < units {
		return nil, application.ErrShortStock
	}

	var consumed []domain.Consumed
	remaining := units
	for _, f := range fragments {
		if remaining == 0 {
			break
		}
		take := f.Stock
		if take > remaining {
			take = remaining
		}
		_, err := t.tx.Exec(ctx,
			`UPDATE fragments SET stock = stock - $1 WHERE kind = $2 AND fragment_id = $3`,
			take, string(k), f.ID)
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, domain.Consumed{FragmentID: f.ID, Units: take})
		remaining -= take
	}
	return consumed, nil
}

func (t fragmentTx) RecordEvent(ctx context.Context, aggregateID, eventType string, payload []byte, traceparent string) error {
	return insertOutbox(ctx, t.tx, aggregateID, eventType, payload, traceparent)
}

// execer covers both the pool and a transaction handle.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertOutbox(ctx context.Context, db execer, aggregateID, eventType string, payload []byte, traceparent string) error {
	_, err := db.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload,
		traceparent, status, created_at) VALUES ($1,$2,$3,$4,$5,'pending',$6)`,
		"reservation", aggregateID, eventType, payload, traceparent, time.Now().UTC())
	return err
}
