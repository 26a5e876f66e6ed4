package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	CreatedAt      time.Time
}

type Child struct {
	ID        uuid.UUID
	ParentID  uuid.UUID
	Name      string
	ClassName string
	StudentID string
	Allergies pgtype.Text
	CreatedAt time.Time
}

type MenuCategory struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
	CreatedAt   time.Time
}

type Order struct {
	ID                    uuid.UUID
	ParentID              uuid.UUID
	ChildID               uuid.UUID
	OrderDate             pgtype.Date
	DeliveryDate          pgtype.Date
	TotalAmount           pgtype.Numeric
	Notes                 pgtype.Text
	Status                string
	PaymentMethod         string
	PaymentStatus         string
	MidtransTransactionID pgtype.Text
	MidtransPaymentUrl    pgtype.Text
	MidtransOrderID       pgtype.Text
	SnapToken             pgtype.Text
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

type BatchOrder struct {
	ID        uuid.UUID
	BatchID   string
	OrderID   uuid.UUID
	CreatedAt time.Time
}
