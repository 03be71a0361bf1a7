package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-delivery/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the delivery repository.
// Delivery rows and their status history are written by this module only.
type RepositoryInterface interface {
	Create(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error)
	FindByID(ctx context.Context, deliveryID string) (*models.Delivery, error)
	ListByPartner(ctx context.Context, partnerID string, page, limit int) ([]*models.Delivery, int, error)
	// ListTerminalByPartner returns the partner's delivered and cancelled
	// deliveries whose last update falls inside the range.
	ListTerminalByPartner(ctx context.Context, partnerID string, r models.DateRange) ([]*models.Delivery, error)
	// ApplyTransition moves a delivery from one status to another and appends
	// the history entry in the same transaction. The update is guarded on the
	// expected current status; a lost race returns models.ErrInvalidTransition.
	ApplyTransition(ctx context.Context, deliveryID string, from models.DeliveryStatus, change models.StatusChange, rejectReason string) error
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new delivery repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Create inserts a new delivery with its initial 'pending' history entry.
// Addresses and fee are snapshots; they are never re-read from the order.
func (r *Repository) Create(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateDelivery begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO deliveries (order_id, partner_id, status, pickup_address, delivery_address, delivery_fee)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING id, created_at, updated_at`

	d := &models.Delivery{
		OrderID:         req.OrderID,
		Status:          models.StatusPending,
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryFee:     req.DeliveryFee,
	}
	d.PartnerID.String = req.PartnerID
	d.PartnerID.Valid = req.PartnerID != ""

	err = tx.QueryRow(ctx, query, req.OrderID, d.PartnerID, req.PickupAddress, req.DeliveryAddress, req.DeliveryFee).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.CreateDelivery: %w", err)
	}

	historyQuery := `
		INSERT INTO delivery_status_events (delivery_id, status, idempotency_key)
		VALUES ($1, 'pending', '')`
	if _, err := tx.Exec(ctx, historyQuery, d.ID); err != nil {
		return nil, fmt.Errorf("repository.CreateDelivery history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.CreateDelivery commit: %w", err)
	}
	d.StatusHistory = []models.StatusChange{{Status: models.StatusPending, CreatedAt: d.CreatedAt}}
	return d, nil
}

// scanDelivery is a helper function to scan a row into a Delivery model.
func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.PartnerID,
		&d.Status,
		&d.PickupAddress,
		&d.DeliveryAddress,
		&d.DeliveryFee,
		&d.RejectReason,
		&d.AcceptedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}

const deliveryColumns = `id, order_id, partner_id, status, pickup_address, delivery_address, delivery_fee, reject_reason, accepted_at, created_at, updated_at`

// FindByID retrieves a delivery together with its full status history.
func (r *Repository) FindByID(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	d, err := scanDelivery(r.db.QueryRow(ctx, query, deliveryID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}

	historyQuery := `
		SELECT status, idempotency_key, created_at
		FROM delivery_status_events
		WHERE delivery_id = $1
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, historyQuery, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ch models.StatusChange
		if err := rows.Scan(&ch.Status, &ch.IdempotencyKey, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.FindByID history scan: %w", err)
		}
		d.StatusHistory = append(d.StatusHistory, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.FindByID history rows: %w", err)
	}
	return d, nil
}

// ListByPartner retrieves a partner's deliveries with pagination.
func (r *Repository) ListByPartner(ctx context.Context, partnerID string, page, limit int) ([]*models.Delivery, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE partner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, partnerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByPartner.Query: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListByPartner.Scan: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	var total int
	err = r.db.QueryRow(ctx, "SELECT COUNT(*) FROM deliveries WHERE partner_id = $1", partnerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByPartner.Count: %w", err)
	}

	return deliveries, total, nil
}

// ListTerminalByPartner retrieves delivered and cancelled deliveries for the
// earnings projection.
func (r *Repository) ListTerminalByPartner(ctx context.Context, partnerID string, dr models.DateRange) ([]*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE partner_id = $1
		  AND status IN ('delivered', 'cancelled')
		  AND ($2::timestamptz IS NULL OR updated_at >= $2)
		  AND ($3::timestamptz IS NULL OR updated_at <= $3)
		ORDER BY updated_at`

	from := nullableTime(dr.From)
	to := nullableTime(dr.To)
	rows, err := r.db.Query(ctx, query, partnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository.ListTerminalByPartner: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListTerminalByPartner scan: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListTerminalByPartner rows: %w", err)
	}
	return deliveries, nil
}

// ApplyTransition performs the compare-and-swap status update and appends the
// status history entry atomically.
func (r *Repository) ApplyTransition(ctx context.Context, deliveryID string, from models.DeliveryStatus, change models.StatusChange, rejectReason string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.ApplyTransition begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE deliveries
		SET status = $1,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    reject_reason = CASE WHEN $4 <> '' THEN $4 ELSE reject_reason END,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3`

	cmdTag, err := tx.Exec(ctx, query, change.Status, deliveryID, from, rejectReason)
	if err != nil {
		return fmt.Errorf("repository.ApplyTransition: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// The delivery is gone or a concurrent writer changed the status first.
		return models.ErrInvalidTransition
	}

	historyQuery := `
		INSERT INTO delivery_status_events (delivery_id, status, idempotency_key)
		VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, historyQuery, deliveryID, change.Status, change.IdempotencyKey); err != nil {
		return fmt.Errorf("repository.ApplyTransition history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.ApplyTransition commit: %w", err)
	}
	return nil
}

// nullableTime maps the zero time onto SQL NULL for open-ended ranges.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
