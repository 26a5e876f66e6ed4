package database

import (
	"context"

	"github.com/google/uuid"
)

const getCartItems = `
SELECT items
FROM carts
WHERE parent_id = $1
`

func (q *Queries) GetCartItems(ctx context.Context, parentID uuid.UUID) ([]byte, error) {
	row := q.db.QueryRow(ctx, getCartItems, parentID)
	var items []byte
	err := row.Scan(&items)
	return items, err
}

const upsertCartItems = `
INSERT INTO carts (parent_id, items, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (parent_id) DO UPDATE SET
	items = $2,
	updated_at = now()
`

type UpsertCartItemsParams struct {
	ParentID uuid.UUID
	Items    []byte
}

func (q *Queries) UpsertCartItems(ctx context.Context, arg UpsertCartItemsParams) error {
	_, err := q.db.Exec(ctx, upsertCartItems, arg.ParentID, arg.Items)
	return err
}

const deleteCart = `
DELETE FROM carts
WHERE parent_id = $1
`

func (q *Queries) DeleteCart(ctx context.Context, parentID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteCart, parentID)
	return err
}
