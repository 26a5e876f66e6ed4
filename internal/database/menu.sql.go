package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listMenuCategories = `
SELECT id, name, created_at
FROM menu_categories
ORDER BY name
`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuCategory
	for rows.Next() {
		var c MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createMenuCategory = `
INSERT INTO menu_categories (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateMenuCategory(ctx context.Context, name string) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, createMenuCategory, name)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const updateMenuCategory = `
UPDATE menu_categories
SET name = $1
WHERE id = $2
RETURNING id, name, created_at
`

type UpdateMenuCategoryParams struct {
	Name string
	ID   uuid.UUID
}

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, updateMenuCategory, arg.Name, arg.ID)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const deleteMenuCategory = `
DELETE FROM menu_categories
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMenuCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuCategory, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const listAvailableMenuItems = `
SELECT mi.id, mi.category_id, mi.name, mi.description, mi.price, mi.is_available, mi.created_at,
       mc.name AS category_name
FROM menu_items mi
JOIN menu_categories mc ON mc.id = mi.category_id
WHERE mi.is_available = true
  AND ($1::uuid IS NULL OR mi.category_id = $1)
ORDER BY mi.name
`

type ListAvailableMenuItemsRow struct {
	ID           uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	CreatedAt    pgtype.Timestamptz
	CategoryName string
}

// ListAvailableMenuItems returns available items, optionally filtered by
// category (pass an invalid pgtype.UUID for no filter).
func (q *Queries) ListAvailableMenuItems(ctx context.Context, categoryID pgtype.UUID) ([]ListAvailableMenuItemsRow, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAvailableMenuItemsRow
	for rows.Next() {
		var i ListAvailableMenuItemsRow
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Description, &i.Price, &i.IsAvailable, &i.CreatedAt, &i.CategoryName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuItemForOrder = `
SELECT id, name, price, is_available
FROM menu_items
WHERE id = $1
`

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, id)
	var i GetMenuItemForOrderRow
	err := row.Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable)
	return i, err
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, description, price, is_available)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, category_id, name, description, price, is_available, created_at
`

type CreateMenuItemParams struct {
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.IsAvailable)
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt)
	return m, err
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $1, name = $2, description = $3, price = $4, is_available = $5
WHERE id = $6
RETURNING id, category_id, name, description, price, is_available, created_at
`

type UpdateMenuItemParams struct {
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
	ID          uuid.UUID
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.IsAvailable, arg.ID)
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt)
	return m, err
}

const disableMenuItem = `
UPDATE menu_items
SET is_available = false
WHERE id = $1
RETURNING id
`

func (q *Queries) DisableMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, disableMenuItem, id)
	var disabled uuid.UUID
	err := row.Scan(&disabled)
	return disabled, err
}
