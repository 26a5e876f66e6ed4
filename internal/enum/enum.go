package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// ── Group B: Borderline (CHECK constrained in DB) ──

const (
	UserRoleParent = "PARENT"
	UserRoleStaff  = "STAFF"
)

const (
	PaymentMethodCash    = "cash"
	PaymentMethodDigital = "digital"
)
