package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/payment"
	"github.com/shopspring/decimal"
)

// Errors returned by the batch payment service.
var (
	ErrNoOrderIDs       = errors.New("order_ids is required")
	ErrNoEligibleOrders = errors.New("no eligible orders found for batch payment")
	ErrEmptySnapToken   = errors.New("payment gateway returned an empty token")
)

// BatchPaymentStore defines the DB methods needed for batch payments.
// Satisfied by *database.Queries.
type BatchPaymentStore interface {
	LockPendingOrdersForBatch(ctx context.Context, arg database.LockPendingOrdersForBatchParams) ([]database.LockPendingOrdersForBatchRow, error)
	SetBatchPaymentToken(ctx context.Context, arg database.SetBatchPaymentTokenParams) ([]uuid.UUID, error)
	CreateBatchOrder(ctx context.Context, arg database.CreateBatchOrderParams) (database.BatchOrder, error)
}

// NewBatchPaymentStore creates a BatchPaymentStore from a DBTX.
type NewBatchPaymentStore func(db database.DBTX) BatchPaymentStore

// BatchPaymentRequest is the input for paying several orders at once.
// TotalAmount is the client's claim and is never trusted; the charged
// amount is recomputed from the stored orders.
type BatchPaymentRequest struct {
	ParentID      uuid.UUID
	OrderIDs      []string
	BatchID       string
	TotalAmount   decimal.Decimal
	CustomerName  string
	CustomerEmail string
}

// BatchPaymentResult reports what was actually charged.
type BatchPaymentResult struct {
	SnapToken       string          `json:"snap_token"`
	OrderID         string          `json:"order_id"`
	BatchID         string          `json:"batch_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ProcessedOrders int             `json:"processed_orders"`
	TotalRequested  int             `json:"total_requested"`
}

// BatchPaymentService creates one Snap transaction covering several
// pending orders.
type BatchPaymentService struct {
	pool      TxBeginner
	newStore  NewBatchPaymentStore
	gateway   SnapGateway
	finishURL string
}

func NewBatchPaymentService(pool TxBeginner, newStore NewBatchPaymentStore, gateway SnapGateway, finishURL string) *BatchPaymentService {
	return &BatchPaymentService{
		pool:      pool,
		newStore:  newStore,
		gateway:   gateway,
		finishURL: finishURL,
	}
}

// CreateBatchPayment locks the caller's still-pending orders among the
// requested IDs, requests one Snap token for their combined total, and
// stamps the token onto each order. Orders that are not eligible (unknown,
// not owned, already paid) are silently excluded; the result reports how
// many made it in.
func (s *BatchPaymentService) CreateBatchPayment(ctx context.Context, req BatchPaymentRequest) (*BatchPaymentResult, error) {
	if len(req.OrderIDs) == 0 {
		return nil, ErrNoOrderIDs
	}

	// Unparseable IDs still count toward total_requested.
	var orderIDs []uuid.UUID
	for _, raw := range req.OrderIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Printf("ERROR: batch payment: skipping invalid order id %q", raw)
			continue
		}
		orderIDs = append(orderIDs, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Row locks are held until commit so a concurrent batch for the same
	// orders waits and then finds them no longer pending.
	eligible, err := store.LockPendingOrdersForBatch(ctx, database.LockPendingOrdersForBatchParams{
		OrderIds: orderIDs,
		ParentID: req.ParentID,
	})
	if err != nil {
		return nil, fmt.Errorf("lock orders: %w", err)
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleOrders
	}

	total := decimal.Zero
	items := make([]payment.ItemDetail, 0, len(eligible))
	eligibleIDs := make([]uuid.UUID, 0, len(eligible))
	for _, row := range eligible {
		amount := numericToDecimal(row.TotalAmount)
		total = total.Add(amount)
		eligibleIDs = append(eligibleIDs, row.ID)
		items = append(items, payment.ItemDetail{
			ID:       payment.Truncate(row.ID.String(), payment.MaxItemIDLen),
			Price:    amount.Round(0).IntPart(),
			Quantity: 1,
			Name:     payment.Truncate("Pesanan "+row.ChildName, payment.MaxItemNameLen),
		})
	}
	if !req.TotalAmount.IsZero() && !req.TotalAmount.Equal(total) {
		log.Printf("ERROR: batch payment: claimed total %s differs from computed total %s", req.TotalAmount, total)
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	midtransOrderID := payment.BatchOrderID()

	snapResp, err := s.gateway.CreateTransaction(ctx, payment.SnapRequest{
		TransactionDetails: payment.TransactionDetails{
			OrderID:     midtransOrderID,
			GrossAmount: total.Round(0).IntPart(),
		},
		CustomerDetails: payment.CustomerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
		},
		ItemDetails: items,
		Callbacks:   &payment.Callbacks{Finish: s.finishURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create snap transaction: %w", err)
	}
	if snapResp.Token == "" {
		return nil, ErrEmptySnapToken
	}

	updated, err := store.SetBatchPaymentToken(ctx, database.SetBatchPaymentTokenParams{
		MidtransOrderID: pgtype.Text{String: midtransOrderID, Valid: true},
		SnapToken:       pgtype.Text{String: snapResp.Token, Valid: true},
		OrderIds:        eligibleIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("store snap token: %w", err)
	}
	if len(updated) != len(eligibleIDs) {
		log.Printf("ERROR: batch payment %s: token stored on %d of %d orders", batchID, len(updated), len(eligibleIDs))
	}

	// Batch membership rows are bookkeeping; failures do not void the
	// payment that was already created. Each insert runs under its own
	// savepoint, otherwise a failed statement would abort the whole
	// transaction and take the token write down with it.
	for _, id := range eligibleIDs {
		if err := s.recordMembership(ctx, tx, batchID, id); err != nil {
			log.Printf("ERROR: batch payment %s: record membership for order %s: %v", batchID, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &BatchPaymentResult{
		SnapToken:       snapResp.Token,
		OrderID:         midtransOrderID,
		BatchID:         batchID,
		TotalAmount:     total,
		ProcessedOrders: len(eligible),
		TotalRequested:  len(req.OrderIDs),
	}, nil
}

// recordMembership inserts one batch_orders row inside a nested
// transaction (a savepoint in pgx), so an insert error is contained and
// the surrounding transaction stays usable.
func (s *BatchPaymentService) recordMembership(ctx context.Context, tx pgx.Tx, batchID string, orderID uuid.UUID) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	store := s.newStore(sp)
	if _, err := store.CreateBatchOrder(ctx, database.CreateBatchOrderParams{BatchID: batchID, OrderID: orderID}); err != nil {
		sp.Rollback(ctx) //nolint:errcheck
		return err
	}
	return sp.Commit(ctx)
}
