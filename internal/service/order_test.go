package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/cart"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/enum"
	"github.com/sekolah-kuliner/api/internal/payment"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
	rolledBack  bool

	// nested transactions handed out by Begin, in order
	savepoints []*mockTx
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	sp := &mockTx{}
	m.savepoints = append(m.savepoints, sp)
	return sp, nil
}
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return m.rollbackErr
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getChildFn            func(ctx context.Context, arg database.GetChildParams) (database.Child, error)
	getMenuItemForOrderFn func(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	createOrderFn         func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn     func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	deleteCartFn          func(ctx context.Context, parentID uuid.UUID) error
	setPaymentLinkFn      func(ctx context.Context, arg database.SetOrderPaymentLinkParams) (database.Order, error)
}

func (m *mockOrderStore) GetChild(ctx context.Context, arg database.GetChildParams) (database.Child, error) {
	return m.getChildFn(ctx, arg)
}
func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error) {
	return m.getMenuItemForOrderFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) DeleteCart(ctx context.Context, parentID uuid.UUID) error {
	return m.deleteCartFn(ctx, parentID)
}
func (m *mockOrderStore) SetOrderPaymentLink(ctx context.Context, arg database.SetOrderPaymentLinkParams) (database.Order, error) {
	return m.setPaymentLinkFn(ctx, arg)
}

// mockGateway implements SnapGateway.
type mockGateway struct {
	createFn func(ctx context.Context, req payment.SnapRequest) (*payment.SnapResponse, error)
	calls    []payment.SnapRequest
}

func (m *mockGateway) CreateTransaction(ctx context.Context, req payment.SnapRequest) (*payment.SnapResponse, error) {
	m.calls = append(m.calls, req)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &payment.SnapResponse{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token"}, nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

// newTestOrderService creates an OrderService with mocked dependencies.
// store is returned by the NewOrderStore factory and also serves as the
// pool-backed store used after commit.
func newTestOrderService(store *mockOrderStore, gw *mockGateway) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, store, newStore, gw, "http://localhost:5173/orders"), tx
}

// defaultOrderStore returns a mockOrderStore with sensible defaults.
// Individual tests override the functions they care about.
func defaultOrderStore(parentID, childID, itemID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getChildFn: func(ctx context.Context, arg database.GetChildParams) (database.Child, error) {
			if arg.ID == childID && arg.ParentID == parentID {
				return database.Child{ID: childID, ParentID: parentID, Name: "Budi", ClassName: "3A"}, nil
			}
			return database.Child{}, pgx.ErrNoRows
		},
		getMenuItemForOrderFn: func(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error) {
			if id == itemID {
				return database.GetMenuItemForOrderRow{
					ID:          itemID,
					Name:        "Nasi Goreng",
					Price:       makeNumeric("15000.00"),
					IsAvailable: true,
				}, nil
			}
			return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            uuid.New(),
				ParentID:      arg.ParentID,
				ChildID:       arg.ChildID,
				OrderDate:     arg.OrderDate,
				DeliveryDate:  arg.DeliveryDate,
				TotalAmount:   arg.TotalAmount,
				Notes:         arg.Notes,
				Status:        arg.Status,
				PaymentMethod: arg.PaymentMethod,
				PaymentStatus: arg.PaymentStatus,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				Quantity:   arg.Quantity,
				Price:      arg.Price,
			}, nil
		},
		deleteCartFn: func(ctx context.Context, parentID uuid.UUID) error { return nil },
		setPaymentLinkFn: func(ctx context.Context, arg database.SetOrderPaymentLinkParams) (database.Order, error) {
			return database.Order{
				ID:                    arg.ID,
				MidtransTransactionID: arg.MidtransTransactionID,
				MidtransPaymentUrl:    arg.MidtransPaymentUrl,
			}, nil
		},
	}
}

func basicReq(parentID, childID, itemID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		ParentID:      parentID,
		ChildID:       childID.String(),
		DeliveryDate:  tomorrow(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines: []cart.Line{
			{MenuItemID: itemID, Name: "Nasi Goreng", Price: decimal.NewFromInt(15000), Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyCart(t *testing.T) {
	store := defaultOrderStore(uuid.New(), uuid.New(), uuid.New())
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(uuid.New(), uuid.New(), uuid.New())
	req.Lines = nil
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	req.Lines[0].Quantity = 0
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_InvalidPaymentMethod(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	req.PaymentMethod = "barter"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got: %v", err)
	}
}

func TestCreateOrder_InvalidChildID(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	req.ChildID = "not-a-uuid"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidChildID) {
		t.Fatalf("expected ErrInvalidChildID, got: %v", err)
	}
}

func TestCreateOrder_DeliveryDateToday(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	req.DeliveryDate = time.Now().Format("2006-01-02")
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrDeliveryDateNotAhead) {
		t.Fatalf("expected ErrDeliveryDateNotAhead, got: %v", err)
	}
}

func TestCreateOrder_DeliveryDateMalformed(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	req.DeliveryDate = "tomorrow"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidDeliveryDate) {
		t.Fatalf("expected ErrInvalidDeliveryDate, got: %v", err)
	}
}

func TestCreateOrder_ChildNotOwned(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(uuid.New(), childID, itemID) // different parent
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got: %v", err)
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	parentID, childID := uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, uuid.New())
	svc, _ := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, uuid.New()) // unknown item
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestCreateOrder_MenuItemUnavailable(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	store.getMenuItemForOrderFn = func(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error) {
		return database.GetMenuItemForOrderRow{
			ID:          itemID,
			Name:        "Nasi Goreng",
			Price:       makeNumeric("15000.00"),
			IsAvailable: false,
		}, nil
	}
	svc, _ := newTestOrderService(store, &mockGateway{})

	_, err := svc.CreateOrder(context.Background(), basicReq(parentID, childID, itemID))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got: %v", err)
	}
}

// =====================
// Pricing and persistence tests
// =====================

func TestCreateOrder_ServerSidePricing(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)

	var createdTotal pgtype.Numeric
	var itemPrices []pgtype.Numeric
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createdTotal = arg.TotalAmount
		return base(ctx, arg)
	}
	baseItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		itemPrices = append(itemPrices, arg.Price)
		return baseItem(ctx, arg)
	}

	svc, tx := newTestOrderService(store, &mockGateway{})

	req := basicReq(parentID, childID, itemID)
	// Client claims a lower price; stored catalog says 15000.
	req.Lines[0].Price = decimal.NewFromInt(1)

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(createdTotal, "30000") {
		t.Errorf("expected total 30000 from stored prices, got %v", numericToDecimal(createdTotal))
	}
	if len(itemPrices) != 1 || !numericEquals(itemPrices[0], "15000") {
		t.Errorf("expected unit price 15000 from stored catalog")
	}
	if result.Order.Status != enum.OrderStatusPending {
		t.Errorf("expected status pending, got %s", result.Order.Status)
	}
	if result.Order.PaymentStatus != enum.PaymentStatusPending {
		t.Errorf("expected payment_status pending, got %s", result.Order.PaymentStatus)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
}

func TestCreateOrder_ClearsCart(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)

	var clearedFor uuid.UUID
	store.deleteCartFn = func(ctx context.Context, pid uuid.UUID) error {
		clearedFor = pid
		return nil
	}
	svc, _ := newTestOrderService(store, &mockGateway{})

	if _, err := svc.CreateOrder(context.Background(), basicReq(parentID, childID, itemID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clearedFor != parentID {
		t.Errorf("expected cart cleared for parent %s, got %s", parentID, clearedFor)
	}
}

func TestCreateOrder_CashSkipsGateway(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	gw := &mockGateway{}
	svc, _ := newTestOrderService(store, gw)

	result, err := svc.CreateOrder(context.Background(), basicReq(parentID, childID, itemID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("expected no gateway calls for cash order, got %d", len(gw.calls))
	}
	if result.PaymentURL != "" {
		t.Errorf("expected no payment URL for cash order, got %q", result.PaymentURL)
	}
}

// =====================
// Digital payment tests
// =====================

func TestCreateOrder_DigitalAttachesPaymentLink(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	gw := &mockGateway{}
	svc, _ := newTestOrderService(store, gw)

	req := basicReq(parentID, childID, itemID)
	req.PaymentMethod = enum.PaymentMethodDigital
	req.CustomerName = "Siti"
	req.CustomerEmail = "siti@example.com"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(gw.calls))
	}
	call := gw.calls[0]
	if call.TransactionDetails.GrossAmount != 30000 {
		t.Errorf("expected gross_amount 30000, got %d", call.TransactionDetails.GrossAmount)
	}
	if call.CustomerDetails.FirstName != "Siti" || call.CustomerDetails.Email != "siti@example.com" {
		t.Errorf("unexpected customer details: %+v", call.CustomerDetails)
	}
	if call.Callbacks == nil || call.Callbacks.Finish != "http://localhost:5173/orders" {
		t.Errorf("expected finish callback, got %+v", call.Callbacks)
	}
	if result.PaymentURL == "" {
		t.Error("expected a payment URL")
	}
	if result.TransactionID == "" {
		t.Error("expected a transaction ID")
	}
}

func TestCreateOrder_DigitalGatewayFailureKeepsOrder(t *testing.T) {
	parentID, childID, itemID := uuid.New(), uuid.New(), uuid.New()
	store := defaultOrderStore(parentID, childID, itemID)
	gw := &mockGateway{
		createFn: func(ctx context.Context, req payment.SnapRequest) (*payment.SnapResponse, error) {
			return nil, errors.New("gateway down")
		},
	}
	svc, tx := newTestOrderService(store, gw)

	req := basicReq(parentID, childID, itemID)
	req.PaymentMethod = enum.PaymentMethodDigital

	result, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrPaymentLink) {
		t.Fatalf("expected ErrPaymentLink, got: %v", err)
	}
	if result == nil {
		t.Fatal("expected the created order to be returned despite gateway failure")
	}
	if !tx.committed {
		t.Error("expected order transaction to be committed before gateway call")
	}
	if result.PaymentURL != "" {
		t.Errorf("expected empty payment URL on failure, got %q", result.PaymentURL)
	}
}
