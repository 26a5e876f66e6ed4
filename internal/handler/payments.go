package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
	"github.com/sekolah-kuliner/api/internal/middleware"
	"github.com/sekolah-kuliner/api/internal/payment"
	"github.com/sekolah-kuliner/api/internal/service"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
// Satisfied by *database.Queries.
type PaymentStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	SetOrderPaymentLink(ctx context.Context, arg database.SetOrderPaymentLinkParams) (database.Order, error)
}

// PaymentHandler creates Midtrans payment links for single orders and
// batches of orders.
type PaymentHandler struct {
	store     PaymentStore
	gateway   service.SnapGateway
	batchSvc  *service.BatchPaymentService
	finishURL string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, gateway service.SnapGateway, batchSvc *service.BatchPaymentService, finishURL string) *PaymentHandler {
	return &PaymentHandler{store: store, gateway: gateway, batchSvc: batchSvc, finishURL: finishURL}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/midtrans", h.CreatePaymentLink)
	r.Post("/payments/batch", h.CreateBatchPayment)
}

// --- Request / Response types ---

type createPaymentLinkRequest struct {
	OrderID string `json:"order_id"`
}

type createPaymentLinkResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
	Token         string `json:"token"`
}

type batchPaymentRequest struct {
	OrderIDs    []string `json:"order_ids"`
	BatchID     string   `json:"batch_id"`
	TotalAmount string   `json:"total_amount"`
}

type batchPaymentResponse struct {
	Success         bool   `json:"success"`
	SnapToken       string `json:"snap_token"`
	OrderID         string `json:"order_id"`
	BatchID         string `json:"batch_id"`
	TotalAmount     string `json:"total_amount"`
	ProcessedOrders int    `json:"processed_orders"`
	TotalRequested  int    `json:"total_requested"`
}

// --- Handlers ---

// CreatePaymentLink requests a fresh Snap payment link for one digital
// order that is still awaiting payment.
func (h *PaymentHandler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createPaymentLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
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
		log.Printf("ERROR: get order for payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if order.PaymentMethod != enum.PaymentMethodDigital {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order is not a digital payment order"})
		return
	}
	if order.PaymentStatus != enum.PaymentStatusPending {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not awaiting payment"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get user for payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	transactionID := payment.OrderTransactionID(order.ID)
	snapResp, err := h.gateway.CreateTransaction(r.Context(), payment.SnapRequest{
		TransactionDetails: payment.TransactionDetails{
			OrderID:     transactionID,
			GrossAmount: numericToDecimal(order.TotalAmount).Round(0).IntPart(),
		},
		CustomerDetails: payment.CustomerDetails{
			FirstName: user.FullName,
			Email:     user.Email,
		},
		Callbacks: &payment.Callbacks{Finish: h.finishURL},
	})
	if err != nil {
		log.Printf("ERROR: create payment link: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to create payment link"})
		return
	}

	if _, err := h.store.SetOrderPaymentLink(r.Context(), database.SetOrderPaymentLinkParams{
		MidtransTransactionID: pgtype.Text{String: transactionID, Valid: true},
		MidtransPaymentUrl:    pgtype.Text{String: snapResp.RedirectURL, Valid: true},
		ID:                    order.ID,
	}); err != nil {
		log.Printf("ERROR: store payment link: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, createPaymentLinkResponse{
		TransactionID: transactionID,
		PaymentURL:    snapResp.RedirectURL,
		Token:         snapResp.Token,
	})
}

// CreateBatchPayment pays several pending orders with one Snap transaction.
func (h *PaymentHandler) CreateBatchPayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req batchPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claimedTotal := decimal.Zero
	if req.TotalAmount != "" {
		d, err := decimal.NewFromString(req.TotalAmount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total_amount"})
			return
		}
		claimedTotal = d
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: get user for batch payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result, err := h.batchSvc.CreateBatchPayment(r.Context(), service.BatchPaymentRequest{
		ParentID:      claims.UserID,
		OrderIDs:      req.OrderIDs,
		BatchID:       req.BatchID,
		TotalAmount:   claimedTotal,
		CustomerName:  user.FullName,
		CustomerEmail: user.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoOrderIDs):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNoEligibleOrders):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create batch payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create batch payment"})
		}
		return
	}

	writeJSON(w, http.StatusOK, batchPaymentResponse{
		Success:         true,
		SnapToken:       result.SnapToken,
		OrderID:         result.OrderID,
		BatchID:         result.BatchID,
		TotalAmount:     result.TotalAmount.StringFixed(2),
		ProcessedOrders: result.ProcessedOrders,
		TotalRequested:  result.TotalRequested,
	})
}
