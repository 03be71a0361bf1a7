// Package orders is a read-only view of the order/payment service's data.
// The delivery core reads paymentMethod, paymentStatus and totalAmount to
// evaluate the COD guard; the single write path is a best-effort request to
// mark an online-paid order completed when its delivery finishes.
package orders

import (
	"context"
	"errors"
	"fmt"

	"marketplace-delivery/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the order view consumed by the delivery core.
type RepositoryInterface interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	// RequestPaymentCompletion asks for the payment-status flip on an
	// online-paid order. The order service owns payment state; this is a
	// request, not an enforcement, and only moves 'pending' to 'completed'.
	RequestPaymentCompletion(ctx context.Context, orderID string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new order view repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindByID retrieves the payment fields of a single order.
func (r *Repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `
		SELECT id, customer_id, payment_method, payment_status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1`
	var o models.Order
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&o.ID,
		&o.CustomerID,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return &o, nil
}

// RequestPaymentCompletion flips a pending payment to completed.
func (r *Repository) RequestPaymentCompletion(ctx context.Context, orderID string) error {
	query := `
		UPDATE orders
		SET payment_status = 'completed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`
	cmdTag, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("repository.RequestPaymentCompletion: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Already completed, or the order is gone. Either way the request was
		// honored as far as this core is concerned.
		return nil
	}
	return nil
}
