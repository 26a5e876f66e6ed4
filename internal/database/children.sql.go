package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createChild = `
INSERT INTO children (parent_id, name, class_name, student_id, allergies)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, parent_id, name, class_name, student_id, allergies, created_at
`

type CreateChildParams struct {
	ParentID  uuid.UUID
	Name      string
	ClassName string
	StudentID string
	Allergies pgtype.Text
}

func (q *Queries) CreateChild(ctx context.Context, arg CreateChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, createChild, arg.ParentID, arg.Name, arg.ClassName, arg.StudentID, arg.Allergies)
	var c Child
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.ClassName, &c.StudentID, &c.Allergies, &c.CreatedAt)
	return c, err
}

const listChildrenByParent = `
SELECT id, parent_id, name, class_name, student_id, allergies, created_at
FROM children
WHERE parent_id = $1
ORDER BY name
`

func (q *Queries) ListChildrenByParent(ctx context.Context, parentID uuid.UUID) ([]Child, error) {
	rows, err := q.db.Query(ctx, listChildrenByParent, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Child
	for rows.Next() {
		var c Child
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.ClassName, &c.StudentID, &c.Allergies, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getChild = `
SELECT id, parent_id, name, class_name, student_id, allergies, created_at
FROM children
WHERE id = $1 AND parent_id = $2
`

type GetChildParams struct {
	ID       uuid.UUID
	ParentID uuid.UUID
}

func (q *Queries) GetChild(ctx context.Context, arg GetChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, getChild, arg.ID, arg.ParentID)
	var c Child
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.ClassName, &c.StudentID, &c.Allergies, &c.CreatedAt)
	return c, err
}

const updateChild = `
UPDATE children
SET name = $1, class_name = $2, student_id = $3, allergies = $4
WHERE id = $5 AND parent_id = $6
RETURNING id, parent_id, name, class_name, student_id, allergies, created_at
`

type UpdateChildParams struct {
	Name      string
	ClassName string
	StudentID string
	Allergies pgtype.Text
	ID        uuid.UUID
	ParentID  uuid.UUID
}

func (q *Queries) UpdateChild(ctx context.Context, arg UpdateChildParams) (Child, error) {
	row := q.db.QueryRow(ctx, updateChild, arg.Name, arg.ClassName, arg.StudentID, arg.Allergies, arg.ID, arg.ParentID)
	var c Child
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.ClassName, &c.StudentID, &c.Allergies, &c.CreatedAt)
	return c, err
}

const deleteChild = `
DELETE FROM children
WHERE id = $1 AND parent_id = $2
RETURNING id
`

type DeleteChildParams struct {
	ID       uuid.UUID
	ParentID uuid.UUID
}

func (q *Queries) DeleteChild(ctx context.Context, arg DeleteChildParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteChild, arg.ID, arg.ParentID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
