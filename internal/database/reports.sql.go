package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getOrderCountByDate = `
SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
FROM orders
WHERE order_date = $1
  AND status <> 'cancelled'
`

type GetOrderCountByDateRow struct {
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetOrderCountByDate(ctx context.Context, orderDate pgtype.Date) (GetOrderCountByDateRow, error) {
	row := q.db.QueryRow(ctx, getOrderCountByDate, orderDate)
	var r GetOrderCountByDateRow
	err := row.Scan(&r.OrderCount, &r.TotalRevenue)
	return r, err
}

const countOrdersByStatus = `
SELECT COUNT(*)
FROM orders
WHERE status = $1
`

func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getRevenueSince = `
SELECT COALESCE(SUM(total_amount), 0)
FROM orders
WHERE order_date >= $1
  AND status <> 'cancelled'
`

func (q *Queries) GetRevenueSince(ctx context.Context, orderDate pgtype.Date) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getRevenueSince, orderDate)
	var revenue pgtype.Numeric
	err := row.Scan(&revenue)
	return revenue, err
}
