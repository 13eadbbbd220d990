package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dauTT/astroport-dca/internal/types"
	"github.com/dauTT/astroport-dca/storage"
)

var _ storage.Store = (*PostgresBackend)(nil)

// NextOrderID draws the next id from a dedicated sequence, so ids of removed
// orders are never handed out again.
func (p *PostgresBackend) NextOrderID(ctx context.Context) (uint64, error) {
	if p.pool == nil {
		return 0, fmt.Errorf("database pool is nil")
	}

	var id uint64
	err := p.pool.QueryRow(ctx, `SELECT nextval('dca_order_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get next order id: %w", err)
	}
	return id, nil
}

func (p *PostgresBackend) GetOrder(ctx context.Context, id uint64) (types.Order, error) {
	if p.pool == nil {
		return types.Order{}, fmt.Errorf("database pool is nil")
	}

	var doc []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM dca_orders WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Order{}, storage.ErrNotFound
		}
		return types.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	var order types.Order
	if err := json.Unmarshal(doc, &order); err != nil {
		return types.Order{}, fmt.Errorf("failed to decode order %d: %w", id, err)
	}
	return order, nil
}

func (p *PostgresBackend) PutOrder(ctx context.Context, order types.Order) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %d: %w", order.ID, err)
	}

	query := `
        INSERT INTO dca_orders (id, created_by, doc)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`

	_, err = p.pool.Exec(ctx, query, order.ID, order.CreatedBy, doc)
	if err != nil {
		return fmt.Errorf("failed to store order %d: %w", order.ID, err)
	}
	return nil
}

func (p *PostgresBackend) RemoveOrder(ctx context.Context, id uint64) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM dca_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUserOrders returns the user's order ids ascending. Ids are assigned
// monotonically, so ascending id order is creation order.
func (p *PostgresBackend) ListUserOrders(ctx context.Context, address string) ([]uint64, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id FROM dca_orders WHERE created_by = $1 ORDER BY id ASC`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return ids, nil
}

// ListDueOrders returns ids of orders whose next purchase time is at or
// before now. The keeper sweep uses it to enqueue purchase attempts.
func (p *PostgresBackend) ListDueOrders(ctx context.Context, now int64) ([]uint64, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id FROM dca_orders
        WHERE GREATEST(
            (doc->>'start_at')::bigint,
            (doc->'balance'->>'last_purchase')::bigint + (doc->>'interval')::bigint
        ) <= $1
        ORDER BY id ASC`

	rows, err := p.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due orders: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due orders: %w", err)
	}
	return ids, nil
}
