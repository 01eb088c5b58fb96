package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkruijs/positionbot/internal/domain"
)

// PositionStore implements domain.PositionStore over PostgreSQL with the same
// snapshot-replace semantics as OrderStore.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `position_id, ticker, status, entry_date, entry_price,
	stop_price, shares, initial_risk, max_favorable_price, source_order_id,
	exit_price, notes, locked`

// LoadPositions reads the full position snapshot. An empty database yields an
// empty snapshot, not an error.
func (s *PositionStore) LoadPositions(ctx context.Context) (domain.PositionSnapshot, error) {
	var snap domain.PositionSnapshot

	err := s.pool.QueryRow(ctx,
		`SELECT asof FROM snapshot_meta WHERE name = 'positions'`).Scan(&snap.AsOf)
	if err != nil && err != pgx.ErrNoRows {
		return domain.PositionSnapshot{}, fmt.Errorf("postgres: load positions asof: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions ORDER BY entry_date, ticker`)
	if err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("postgres: load positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p      domain.Position
			status string
		)
		if err := rows.Scan(
			&p.PositionID, &p.Ticker, &status, &p.EntryDate, &p.EntryPrice,
			&p.StopPrice, &p.Shares, &p.InitialRisk, &p.MaxFavorablePrice, &p.SourceOrderID,
			&p.ExitPrice, &p.Notes, &p.Locked,
		); err != nil {
			return domain.PositionSnapshot{}, fmt.Errorf("postgres: scan position: %w", err)
		}
		p.Status = domain.PositionStatus(status)
		snap.Positions = append(snap.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return snap, nil
}

// SavePositions replaces the position snapshot in one transaction. Positions
// the migration linker has not yet stamped with an ID get one here, since
// position_id is the primary key.
func (s *PositionStore) SavePositions(ctx context.Context, snap domain.PositionSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save positions begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshot_meta (name, asof, updated_at) VALUES ('positions', $1, NOW())
		ON CONFLICT (name) DO UPDATE SET asof = EXCLUDED.asof, updated_at = NOW()`,
		snap.AsOf,
	); err != nil {
		return fmt.Errorf("postgres: save positions meta: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("postgres: clear positions: %w", err)
	}

	for _, p := range snap.Positions {
		if p.PositionID == "" {
			p.PositionID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO positions (
				position_id, ticker, status, entry_date, entry_price,
				stop_price, shares, initial_risk, max_favorable_price, source_order_id,
				exit_price, notes, locked
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10,
				$11, $12, $13
			)`,
			p.PositionID, p.Ticker, string(p.Status), p.EntryDate, p.EntryPrice,
			p.StopPrice, p.Shares, p.InitialRisk, p.MaxFavorablePrice, p.SourceOrderID,
			p.ExitPrice, p.Notes, p.Locked,
		); err != nil {
			return fmt.Errorf("postgres: insert position %s: %w", p.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save positions commit: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
