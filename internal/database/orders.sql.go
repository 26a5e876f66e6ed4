package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, parent_id, child_id, order_date, delivery_date, total_amount, notes,
       status, payment_method, payment_status,
       midtrans_transaction_id, midtrans_payment_url, midtrans_order_id, snap_token,
       created_at, updated_at`

func scanOrder(row rowScanner, o *Order) error {
	return row.Scan(
		&o.ID, &o.ParentID, &o.ChildID, &o.OrderDate, &o.DeliveryDate, &o.TotalAmount, &o.Notes,
		&o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.MidtransTransactionID, &o.MidtransPaymentUrl, &o.MidtransOrderID, &o.SnapToken,
		&o.CreatedAt, &o.UpdatedAt,
	)
}

// rowScanner matches both pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const createOrder = `
INSERT INTO orders (parent_id, child_id, order_date, delivery_date, total_amount, notes,
                    status, payment_method, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ParentID      uuid.UUID
	ChildID       uuid.UUID
	OrderDate     pgtype.Date
	DeliveryDate  pgtype.Date
	TotalAmount   pgtype.Numeric
	Notes         pgtype.Text
	Status        string
	PaymentMethod string
	PaymentStatus string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ParentID, arg.ChildID, arg.OrderDate, arg.DeliveryDate, arg.TotalAmount, arg.Notes,
		arg.Status, arg.PaymentMethod, arg.PaymentStatus,
	)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, menu_item_id, quantity, price
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.MenuItemID, arg.Quantity, arg.Price)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.Price)
	return i, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND parent_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID
	ParentID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.ParentID)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const listOrdersByParent = `
SELECT o.id, o.parent_id, o.child_id, o.order_date, o.delivery_date, o.total_amount, o.notes,
       o.status, o.payment_method, o.payment_status,
       o.midtrans_transaction_id, o.midtrans_payment_url, o.midtrans_order_id, o.snap_token,
       o.created_at, o.updated_at,
       c.name AS child_name, c.class_name AS child_class_name
FROM orders o
JOIN children c ON c.id = o.child_id
WHERE o.parent_id = $1
ORDER BY o.created_at DESC
`

type ListOrdersByParentRow struct {
	Order
	ChildName      string
	ChildClassName string
}

func (q *Queries) ListOrdersByParent(ctx context.Context, parentID uuid.UUID) ([]ListOrdersByParentRow, error) {
	rows, err := q.db.Query(ctx, listOrdersByParent, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrdersByParentRow
	for rows.Next() {
		var r ListOrdersByParentRow
		if err := rows.Scan(
			&r.ID, &r.ParentID, &r.ChildID, &r.OrderDate, &r.DeliveryDate, &r.TotalAmount, &r.Notes,
			&r.Status, &r.PaymentMethod, &r.PaymentStatus,
			&r.MidtransTransactionID, &r.MidtransPaymentUrl, &r.MidtransOrderID, &r.SnapToken,
			&r.CreatedAt, &r.UpdatedAt,
			&r.ChildName, &r.ChildClassName,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listAllOrders = `
SELECT o.id, o.parent_id, o.child_id, o.order_date, o.delivery_date, o.total_amount, o.notes,
       o.status, o.payment_method, o.payment_status,
       o.midtrans_transaction_id, o.midtrans_payment_url, o.midtrans_order_id, o.snap_token,
       o.created_at, o.updated_at,
       c.name AS child_name, c.class_name AS child_class_name,
       u.full_name AS parent_name, u.email AS parent_email
FROM orders o
JOIN children c ON c.id = o.child_id
JOIN users u ON u.id = o.parent_id
WHERE $1::text IS NULL OR o.status = $1
ORDER BY o.created_at DESC
`

type ListAllOrdersRow struct {
	Order
	ChildName      string
	ChildClassName string
	ParentName     string
	ParentEmail    string
}

// ListAllOrders returns every order, optionally filtered by status (pass an
// invalid pgtype.Text for no filter). Staff only.
func (q *Queries) ListAllOrders(ctx context.Context, status pgtype.Text) ([]ListAllOrdersRow, error) {
	rows, err := q.db.Query(ctx, listAllOrders, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAllOrdersRow
	for rows.Next() {
		var r ListAllOrdersRow
		if err := rows.Scan(
			&r.ID, &r.ParentID, &r.ChildID, &r.OrderDate, &r.DeliveryDate, &r.TotalAmount, &r.Notes,
			&r.Status, &r.PaymentMethod, &r.PaymentStatus,
			&r.MidtransTransactionID, &r.MidtransPaymentUrl, &r.MidtransOrderID, &r.SnapToken,
			&r.CreatedAt, &r.UpdatedAt,
			&r.ChildName, &r.ChildClassName,
			&r.ParentName, &r.ParentEmail,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price,
       mi.name AS menu_item_name
FROM order_items oi
JOIN menu_items mi ON mi.id = oi.menu_item_id
WHERE oi.order_id = $1
`

type ListOrderItemsByOrderRow struct {
	OrderItem
	MenuItemName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var r ListOrderItemsByOrderRow
		if err := rows.Scan(&r.ID, &r.OrderID, &r.MenuItemID, &r.Quantity, &r.Price, &r.MenuItemName); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $1, updated_at = now()
WHERE id = $2
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	Status string
	ID     uuid.UUID
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.Status, arg.ID)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const updateOrderPaymentStatus = `
UPDATE orders
SET payment_status = $1, updated_at = now()
WHERE id = $2
RETURNING ` + orderColumns

type UpdateOrderPaymentStatusParams struct {
	PaymentStatus string
	ID            uuid.UUID
}

func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, arg UpdateOrderPaymentStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPaymentStatus, arg.PaymentStatus, arg.ID)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const setOrderPaymentLink = `
UPDATE orders
SET midtrans_transaction_id = $1, midtrans_payment_url = $2, updated_at = now()
WHERE id = $3
RETURNING ` + orderColumns

type SetOrderPaymentLinkParams struct {
	MidtransTransactionID pgtype.Text
	MidtransPaymentUrl    pgtype.Text
	ID                    uuid.UUID
}

func (q *Queries) SetOrderPaymentLink(ctx context.Context, arg SetOrderPaymentLinkParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderPaymentLink, arg.MidtransTransactionID, arg.MidtransPaymentUrl, arg.ID)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const lockPendingOrdersForBatch = `
SELECT o.id, o.total_amount, c.name AS child_name
FROM orders o
JOIN children c ON c.id = o.child_id
WHERE o.id = ANY($1::uuid[])
  AND o.parent_id = $2
  AND o.payment_status = 'pending'
ORDER BY o.created_at
FOR UPDATE OF o
`

type LockPendingOrdersForBatchParams struct {
	OrderIds []uuid.UUID
	ParentID uuid.UUID
}

type LockPendingOrdersForBatchRow struct {
	ID          uuid.UUID
	TotalAmount pgtype.Numeric
	ChildName   string
}

// LockPendingOrdersForBatch selects the caller's still-pending orders from
// the requested set and locks them for the remainder of the transaction.
func (q *Queries) LockPendingOrdersForBatch(ctx context.Context, arg LockPendingOrdersForBatchParams) ([]LockPendingOrdersForBatchRow, error) {
	rows, err := q.db.Query(ctx, lockPendingOrdersForBatch, arg.OrderIds, arg.ParentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LockPendingOrdersForBatchRow
	for rows.Next() {
		var r LockPendingOrdersForBatchRow
		if err := rows.Scan(&r.ID, &r.TotalAmount, &r.ChildName); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const setBatchPaymentToken = `
UPDATE orders
SET midtrans_order_id = $1, snap_token = $2, updated_at = now()
WHERE id = ANY($3::uuid[])
  AND payment_status = 'pending'
RETURNING id
`

type SetBatchPaymentTokenParams struct {
	MidtransOrderID pgtype.Text
	SnapToken       pgtype.Text
	OrderIds        []uuid.UUID
}

// SetBatchPaymentToken conditionally stamps the gateway token on orders that
// are still pending; the returned ids show which rows actually changed.
func (q *Queries) SetBatchPaymentToken(ctx context.Context, arg SetBatchPaymentTokenParams) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, setBatchPaymentToken, arg.MidtransOrderID, arg.SnapToken, arg.OrderIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const createBatchOrder = `
INSERT INTO batch_orders (batch_id, order_id)
VALUES ($1, $2)
RETURNING id, batch_id, order_id, created_at
`

type CreateBatchOrderParams struct {
	BatchID string
	OrderID uuid.UUID
}

func (q *Queries) CreateBatchOrder(ctx context.Context, arg CreateBatchOrderParams) (BatchOrder, error) {
	row := q.db.QueryRow(ctx, createBatchOrder, arg.BatchID, arg.OrderID)
	var b BatchOrder
	err := row.Scan(&b.ID, &b.BatchID, &b.OrderID, &b.CreatedAt)
	return b, err
}
