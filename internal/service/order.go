package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/cart"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
	"github.com/sekolah-kuliner/api/internal/payment"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidChildID       = errors.New("invalid child_id")
	ErrChildNotFound        = errors.New("child not found")
	ErrInvalidDeliveryDate  = errors.New("invalid delivery_date")
	ErrDeliveryDateNotAhead = errors.New("delivery_date must be after today")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is no longer available")
	ErrPaymentLink          = errors.New("failed to create payment link")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetChild(ctx context.Context, arg database.GetChildParams) (database.Child, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DeleteCart(ctx context.Context, parentID uuid.UUID) error
	SetOrderPaymentLink(ctx context.Context, arg database.SetOrderPaymentLinkParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// SnapGateway is the Midtrans Snap client surface the service needs.
type SnapGateway interface {
	CreateTransaction(ctx context.Context, req payment.SnapRequest) (*payment.SnapResponse, error)
}

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	ParentID      uuid.UUID
	ChildID       string
	DeliveryDate  string // YYYY-MM-DD, strictly after today
	PaymentMethod string
	Notes         string
	CustomerName  string
	CustomerEmail string
	Lines         []cart.Line
}

// CreateOrderResult is the created order with its lines, plus payment link
// details for digital orders.
type CreateOrderResult struct {
	Order         database.Order
	Items         []database.OrderItem
	PaymentURL    string
	TransactionID string
}

// pricedLine is a cart line re-priced from the live catalog.
type pricedLine struct {
	menuItemID uuid.UUID
	quantity   int32
	unitPrice  decimal.Decimal
}

// OrderService handles order submission.
type OrderService struct {
	pool      TxBeginner
	store     OrderStore
	newStore  NewOrderStore
	gateway   SnapGateway
	finishURL string
}

// NewOrderService creates a new OrderService. store must be pool-backed; it
// is used for the post-commit payment link update.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, gateway SnapGateway, finishURL string) *OrderService {
	return &OrderService{
		pool:      pool,
		store:     store,
		newStore:  newStore,
		gateway:   gateway,
		finishURL: finishURL,
	}
}

// CreateOrder validates, re-prices every line from the stored catalog, and
// writes the order header and lines in one transaction. For digital orders
// it then requests a payment link; a gateway failure leaves the created
// order in place and is surfaced alongside the result for manual retry.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate before any persistence ---
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	if req.PaymentMethod != enum.PaymentMethodCash && req.PaymentMethod != enum.PaymentMethodDigital {
		return nil, ErrInvalidPaymentMethod
	}

	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		return nil, ErrInvalidChildID
	}

	deliveryDate, err := time.Parse("2006-01-02", req.DeliveryDate)
	if err != nil {
		return nil, ErrInvalidDeliveryDate
	}
	today := startOfDay(time.Now())
	if !deliveryDate.After(today) {
		return nil, ErrDeliveryDateNotAhead
	}

	result, err := s.createOrderTx(ctx, req, childID, today, deliveryDate)
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == enum.PaymentMethodDigital {
		if err := s.attachPaymentLink(ctx, result, req); err != nil {
			// The order stays created in pending state; the caller retries
			// payment separately.
			return result, err
		}
	}

	return result, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, childID uuid.UUID, today, deliveryDate time.Time) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Verify child ownership ---
	if _, err := store.GetChild(ctx, database.GetChildParams{ID: childID, ParentID: req.ParentID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("get child: %w", err)
	}

	// --- Re-price lines from the stored catalog ---
	// Client-held prices are never trusted for the order total.
	totalAmount := decimal.Zero
	var lines []pricedLine
	for i, line := range req.Lines {
		item, err := store.GetMenuItemForOrder(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line[%d] %q: %w", i, line.Name, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("line[%d]: get menu item: %w", i, err)
		}
		if !item.IsAvailable {
			return nil, fmt.Errorf("line[%d] %q: %w", i, item.Name, ErrMenuItemUnavailable)
		}

		unitPrice := numericToDecimal(item.Price)
		totalAmount = totalAmount.Add(unitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
		lines = append(lines, pricedLine{
			menuItemID: item.ID,
			quantity:   line.Quantity,
			unitPrice:  unitPrice,
		})
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	// --- Insert order header ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ParentID:      req.ParentID,
		ChildID:       childID,
		OrderDate:     pgtype.Date{Time: today, Valid: true},
		DeliveryDate:  pgtype.Date{Time: deliveryDate, Valid: true},
		TotalAmount:   decimalToNumeric(totalAmount),
		Notes:         notes,
		Status:        enum.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: enum.PaymentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert lines ---
	var items []database.OrderItem
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			Price:      decimalToNumeric(line.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Consume the cart ---
	if err := store.DeleteCart(ctx, req.ParentID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// attachPaymentLink requests a Snap payment link for the committed order and
// stores it. Runs outside the order transaction.
func (s *OrderService) attachPaymentLink(ctx context.Context, result *CreateOrderResult, req CreateOrderRequest) error {
	transactionID := payment.OrderTransactionID(result.Order.ID)

	snapResp, err := s.gateway.CreateTransaction(ctx, payment.SnapRequest{
		TransactionDetails: payment.TransactionDetails{
			OrderID:     transactionID,
			GrossAmount: numericToDecimal(result.Order.TotalAmount).Round(0).IntPart(),
		},
		CustomerDetails: payment.CustomerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
		},
		Callbacks: &payment.Callbacks{Finish: s.finishURL},
	})
	if err != nil {
		log.Printf("ERROR: create payment link for order %s: %v", result.Order.ID, err)
		return fmt.Errorf("%w: %v", ErrPaymentLink, err)
	}

	order, err := s.store.SetOrderPaymentLink(ctx, database.SetOrderPaymentLinkParams{
		MidtransTransactionID: pgtype.Text{String: transactionID, Valid: true},
		MidtransPaymentUrl:    pgtype.Text{String: snapResp.RedirectURL, Valid: true},
		ID:                    result.Order.ID,
	})
	if err != nil {
		log.Printf("ERROR: store payment link for order %s: %v", result.Order.ID, err)
		return fmt.Errorf("%w: %v", ErrPaymentLink, err)
	}

	result.Order = order
	result.PaymentURL = snapResp.RedirectURL
	result.TransactionID = transactionID
	return nil
}

// --- Helpers ---

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

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

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
