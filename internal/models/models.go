package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Role decides which navigation frame and pages a session may see
type Role string

const (
	RoleGuest  Role = "guest"
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a role a profile can carry
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is a marketplace profile (buyer company, seller company or admin)
type User struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        Role      `db:"role" json:"role"`
	CompanyName string    `db:"company_name" json:"company_name"`
	Phone       string    `db:"phone" json:"phone"`
	City        string    `db:"city" json:"city"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product is a seller's catalog entry
type Product struct {
	ID           int64           `db:"id" json:"id"`
	SellerID     int64           `db:"seller_id" json:"seller_id"`
	SellerName   string          `db:"seller_name" json:"seller_name,omitempty"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	MainCategory string          `db:"main_category" json:"main_category"`
	Subcategory  string          `db:"subcategory" json:"subcategory"`
	Price        decimal.Decimal `db:"price" json:"price"`
	MinOrderQty  int             `db:"min_order_qty" json:"min_order_qty"`
	Unit         string          `db:"unit" json:"unit"`
	Stock        int             `db:"stock" json:"stock"`
	Sizes        pq.StringArray  `db:"sizes" json:"sizes"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Order is one seller's share of a checkout
type Order struct {
	ID               int64           `db:"id" json:"id"`
	OrderNumber      string          `db:"order_number" json:"order_number"`
	BuyerID          int64           `db:"buyer_id" json:"buyer_id"`
	SellerID         int64           `db:"seller_id" json:"seller_id"`
	BuyerName        string          `db:"buyer_name" json:"buyer_name,omitempty"`
	SellerName       string          `db:"seller_name" json:"seller_name,omitempty"`
	Status           string          `db:"status" json:"status"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount        decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Total            decimal.Decimal `db:"total" json:"total"`
	DepositPercent   int             `db:"deposit_percent" json:"deposit_percent"`
	DepositAmount    decimal.Decimal `db:"deposit_amount" json:"deposit_amount"`
	RemainingBalance decimal.Decimal `db:"remaining_balance" json:"remaining_balance"`
	IdempotencyKey   string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Dimensions  string          `db:"dimensions" json:"dimensions,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Payment represents a mocked deposit charge
type Payment struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	Status       string          `db:"status" json:"status"`
	ProviderTxID string          `db:"provider_tx_id" json:"provider_tx_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Invoice is issued per order: one for the deposit, one for the remaining balance
type Invoice struct {
	ID            int64           `db:"id" json:"id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	OrderID       int64           `db:"order_id" json:"order_id"`
	OrderNumber   string          `db:"order_number" json:"order_number,omitempty"`
	BuyerID       int64           `db:"buyer_id" json:"buyer_id"`
	SellerID      int64           `db:"seller_id" json:"seller_id"`
	Kind          string          `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        string          `db:"status" json:"status"`
	IssuedAt      time.Time       `db:"issued_at" json:"issued_at"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// Notification is shown on the notifications page of its owner
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message belongs to a support thread between a user and the marketplace staff
type Message struct {
	ID         int64     `db:"id" json:"id"`
	ThreadID   string    `db:"thread_id" json:"thread_id"`
	SenderID   int64     `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name,omitempty"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Branch is a seller's pickup or distribution location
type Branch struct {
	ID        int64     `db:"id" json:"id"`
	SellerID  int64     `db:"seller_id" json:"seller_id"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DashboardStats aggregates counters for a dashboard. Zero SellerID/BuyerID means marketplace-wide.
type DashboardStats struct {
	Products           int             `db:"products" json:"products"`
	Orders             int             `db:"orders" json:"orders"`
	PendingOrders      int             `db:"pending_orders" json:"pending_orders"`
	Revenue            decimal.Decimal `db:"revenue" json:"revenue"`
	OutstandingBalance decimal.Decimal `db:"outstanding_balance" json:"outstanding_balance"`
	Users              int             `db:"users" json:"users"`
}

// Order statuses
const (
	OrderStatusPendingPayment = "PENDING_PAYMENT"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusShipped        = "SHIPPED"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusPaidInFull     = "PAID_IN_FULL"
	OrderStatusCancelled      = "CANCELLED"
)

// OrderStatuses lists statuses in lifecycle order, used by filters
var OrderStatuses = []string{
	OrderStatusPendingPayment,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusPaidInFull,
	OrderStatusCancelled,
}

// Payment statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// Invoice kinds and statuses
const (
	InvoiceKindDeposit = "DEPOSIT"
	InvoiceKindBalance = "BALANCE"

	InvoiceStatusDue  = "DUE"
	InvoiceStatusPaid = "PAID"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
