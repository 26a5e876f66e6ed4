package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/cart"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
	"github.com/sekolah-kuliner/api/internal/middleware"
	"github.com/sekolah-kuliner/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderReadStore defines the database methods needed by order read and
// staff endpoints. Satisfied by *database.Queries.
type OrderReadStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetCartItems(ctx context.Context, parentID uuid.UUID) ([]byte, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrdersByParent(ctx context.Context, parentID uuid.UUID) ([]database.ListOrdersByParentRow, error)
	ListAllOrders(ctx context.Context, status pgtype.Text) ([]database.ListAllOrdersRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
}

// OrderHandler handles order submission and history for parents, and order
// management for staff.
type OrderHandler struct {
	store OrderReadStore
	svc   *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderReadStore, svc *service.OrderService) *OrderHandler {
	return &OrderHandler{store: store, svc: svc}
}

// RegisterRoutes registers parent-facing order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
}

// RegisterStaffRoutes registers order management endpoints. Mount behind
// the staff role check.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/staff/orders", h.ListAll)
	r.Patch("/staff/orders/{id}/status", h.UpdateStatus)
	r.Patch("/staff/orders/{id}/payment", h.UpdatePaymentStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	ChildID       string `json:"child_id"`
	DeliveryDate  string `json:"delivery_date"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name,omitempty"`
	Quantity     int32     `json:"quantity"`
	Price        string    `json:"price"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	ChildID        uuid.UUID           `json:"child_id"`
	ChildName      string              `json:"child_name,omitempty"`
	ChildClassName string              `json:"child_class_name,omitempty"`
	ParentName     string              `json:"parent_name,omitempty"`
	ParentEmail    string              `json:"parent_email,omitempty"`
	OrderDate      string              `json:"order_date"`
	DeliveryDate   string              `json:"delivery_date"`
	TotalAmount    string              `json:"total_amount"`
	Notes          *string             `json:"notes"`
	Status         string              `json:"status"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentStatus  string              `json:"payment_status"`
	PaymentURL     *string             `json:"payment_url"`
	Items          []orderItemResponse `json:"items,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type createOrderResponse struct {
	Order      orderResponse `json:"order"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		ChildID:       o.ChildID,
		TotalAmount:   formatPrice(o.TotalAmount),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
	}
	if o.OrderDate.Valid {
		resp.OrderDate = o.OrderDate.Time.Format("2006-01-02")
	}
	if o.DeliveryDate.Valid {
		resp.DeliveryDate = o.DeliveryDate.Time.Format("2006-01-02")
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.MidtransPaymentUrl.Valid {
		resp.PaymentURL = &o.MidtransPaymentUrl.String
	}
	return resp
}

func toOrderItemResponses(items []database.ListOrderItemsByOrderRow) []orderItemResponse {
	resp := make([]orderItemResponse, len(items))
	for i, item := range items {
		resp[i] = orderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			MenuItemName: item.MenuItemName,
			Quantity:     item.Quantity,
			Price:        formatPrice(item.Price),
		}
	}
	return resp
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isValidOrderStatus(status string) bool {
	switch status {
	case enum.OrderStatusPending, enum.OrderStatusConfirmed, enum.OrderStatusPreparing,
		enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isValidPaymentStatus(status string) bool {
	switch status {
	case enum.PaymentStatusPending, enum.PaymentStatusPaid, enum.PaymentStatusFailed:
		return true
	}
	return false
}

// loadCartLines reads the parent's stored cart. Corrupt data comes back as
// an empty cart, same as the cart endpoints.
func (h *OrderHandler) loadCartLines(ctx context.Context, parentID uuid.UUID) ([]cart.Line, error) {
	data, err := h.store.GetCartItems(ctx, parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, nil
	}
	return lines, nil
}

// --- Parent handlers ---

// Create submits the parent's cart as an order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines, err := h.loadCartLines(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: load cart for order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get user for order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		ParentID:      claims.UserID,
		ChildID:       req.ChildID,
		DeliveryDate:  req.DeliveryDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CustomerName:  user.FullName,
		CustomerEmail: user.Email,
		Lines:         lines,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrInvalidChildID),
			errors.Is(err, service.ErrInvalidDeliveryDate),
			errors.Is(err, service.ErrDeliveryDateNotAhead),
			errors.Is(err, service.ErrInvalidPaymentMethod),
			errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrChildNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrMenuItemNotFound),
			errors.Is(err, service.ErrMenuItemUnavailable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrPaymentLink):
			// The order exists; payment can be retried via the payments
			// endpoint.
			writeJSON(w, http.StatusCreated, createOrderResponse{
				Order: toOrderResponse(result.Order),
			})
		default:
			log.Printf("ERROR: create order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Order:      toOrderResponse(result.Order),
		PaymentURL: result.PaymentURL,
	})
}

// List returns the authenticated parent's order history with line items.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orders, err := h.store.ListOrdersByParent(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, row := range orders {
		o := toOrderResponse(row.Order)
		o.ChildName = row.ChildName
		o.ChildClassName = row.ChildClassName

		items, err := h.store.ListOrderItemsByOrder(r.Context(), row.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		o.Items = toOrderItemResponses(items)
		resp[i] = o
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one of the parent's orders with line items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		ParentID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = toOrderItemResponses(items)

	writeJSON(w, http.StatusOK, resp)
}

// --- Staff handlers ---

// ListAll returns every order, optionally filtered by ?status=.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	var status pgtype.Text
	if raw := r.URL.Query().Get("status"); raw != "" {
		if !isValidOrderStatus(raw) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		status = pgtype.Text{String: raw, Valid: true}
	}

	orders, err := h.store.ListAllOrders(r.Context(), status)
	if err != nil {
		log.Printf("ERROR: list all orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, row := range orders {
		o := toOrderResponse(row.Order)
		o.ChildName = row.ChildName
		o.ChildClassName = row.ChildClassName
		o.ParentName = row.ParentName
		o.ParentEmail = row.ParentEmail
		resp[i] = o
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order through the fulfillment flow.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		Status: req.Status,
		ID:     orderID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdatePaymentStatus records payment state changes, e.g. cash received.
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !isValidPaymentStatus(req.PaymentStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_status"})
		return
	}

	order, err := h.store.UpdateOrderPaymentStatus(r.Context(), database.UpdateOrderPaymentStatusParams{
		PaymentStatus: req.PaymentStatus,
		ID:            orderID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update payment status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
