package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
)

// ReportStore defines the database methods needed by the stats endpoint.
// Satisfied by *database.Queries.
type ReportStore interface {
	GetOrderCountByDate(ctx context.Context, orderDate pgtype.Date) (database.GetOrderCountByDateRow, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
	GetRevenueSince(ctx context.Context, orderDate pgtype.Date) (pgtype.Numeric, error)
}

// ReportHandler serves the staff dashboard stats.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints. Mount behind the staff role
// check.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/staff/stats", h.Stats)
}

type statsResponse struct {
	TodayOrders    int64  `json:"today_orders"`
	PendingOrders  int64  `json:"pending_orders"`
	TodayRevenue   string `json:"today_revenue"`
	MonthlyRevenue string `json:"monthly_revenue"`
}

// Stats returns today's order count and revenue, the pending order
// backlog, and revenue since the start of the month. Cancelled orders are
// excluded from all figures.
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	today := pgtype.Date{Time: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
	monthStart := pgtype.Date{Time: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), Valid: true}

	todayStats, err := h.store.GetOrderCountByDate(r.Context(), today)
	if err != nil {
		log.Printf("ERROR: get today stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	pending, err := h.store.CountOrdersByStatus(r.Context(), enum.OrderStatusPending)
	if err != nil {
		log.Printf("ERROR: count pending orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	monthlyRevenue, err := h.store.GetRevenueSince(r.Context(), monthStart)
	if err != nil {
		log.Printf("ERROR: get monthly revenue: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TodayOrders:    todayStats.OrderCount,
		PendingOrders:  pending,
		TodayRevenue:   numericToDecimal(todayStats.TotalRevenue).StringFixed(2),
		MonthlyRevenue: numericToDecimal(monthlyRevenue).StringFixed(2),
	})
}
