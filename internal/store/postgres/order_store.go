package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkruijs/positionbot/internal/domain"
)

// OrderStore implements domain.OrderStore over PostgreSQL. The whole order
// set is treated as one snapshot: save replaces every row inside a single
// transaction.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderSelectCols = `order_id, ticker, status, order_type, quantity,
	limit_price, stop_price, entry_price, order_date, filled_date,
	order_kind, parent_order_id, position_id, tif, notes, locked`

// LoadOrders reads the full order snapshot. An empty database yields an
// empty snapshot, not an error.
func (s *OrderStore) LoadOrders(ctx context.Context) (domain.OrderSnapshot, error) {
	var snap domain.OrderSnapshot

	err := s.pool.QueryRow(ctx,
		`SELECT asof FROM snapshot_meta WHERE name = 'orders'`).Scan(&snap.AsOf)
	if err != nil && err != pgx.ErrNoRows {
		return domain.OrderSnapshot{}, fmt.Errorf("postgres: load orders asof: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders ORDER BY order_date, order_id`)
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("postgres: load orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o            domain.Order
			status, kind string
		)
		if err := rows.Scan(
			&o.OrderID, &o.Ticker, &status, &o.OrderType, &o.Quantity,
			&o.LimitPrice, &o.StopPrice, &o.EntryPrice, &o.OrderDate, &o.FilledDate,
			&kind, &o.ParentOrderID, &o.PositionID, &o.TIF, &o.Notes, &o.Locked,
		); err != nil {
			return domain.OrderSnapshot{}, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		o.OrderKind = domain.OrderKind(kind)
		snap.Orders = append(snap.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("postgres: scan orders: %w", err)
	}
	return snap, nil
}

// SaveOrders replaces the order snapshot in one transaction.
func (s *OrderStore) SaveOrders(ctx context.Context, snap domain.OrderSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save orders begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshot_meta (name, asof, updated_at) VALUES ('orders', $1, NOW())
		ON CONFLICT (name) DO UPDATE SET asof = EXCLUDED.asof, updated_at = NOW()`,
		snap.AsOf,
	); err != nil {
		return fmt.Errorf("postgres: save orders meta: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("postgres: clear orders: %w", err)
	}

	for _, o := range snap.Orders {
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (
				order_id, ticker, status, order_type, quantity,
				limit_price, stop_price, entry_price, order_date, filled_date,
				order_kind, parent_order_id, position_id, tif, notes, locked
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16
			)`,
			o.OrderID, o.Ticker, string(o.Status), o.OrderType, o.Quantity,
			o.LimitPrice, o.StopPrice, o.EntryPrice, o.OrderDate, o.FilledDate,
			string(o.OrderKind), o.ParentOrderID, o.PositionID, o.TIF, o.Notes, o.Locked,
		); err != nil {
			return fmt.Errorf("postgres: insert order %s: %w", o.OrderID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save orders commit: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
