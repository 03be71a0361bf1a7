package models

import "time"

// Payment method and status values as stored by the order/payment service.
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Order is a read-only view of the external order/payment service. This core
// reads paymentMethod, paymentStatus and totalAmount to evaluate the COD guard
// and never writes them, except to request a payment-status flip when an
// online-paid delivery completes.
type Order struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   int64     `json:"total_amount"` // minor currency units (paise)
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
