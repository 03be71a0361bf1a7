package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-delivery/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the append-only event store behind the COD
// ledger. There is no update or delete, and no stored balance: every figure
// is derived by folding over the rows returned here.
type RepositoryInterface interface {
	InsertCollection(ctx context.Context, ev *models.CODCollectionEvent) error
	FindCollectionByOrder(ctx context.Context, orderID string) (*models.CODCollectionEvent, error)
	ListCollectionsByPartner(ctx context.Context, partnerID string, r models.DateRange) ([]models.CODCollectionEvent, error)
	InsertSettlement(ctx context.Context, ev *models.CODSettlementEvent) error
	ListSettlementsByPartner(ctx context.Context, partnerID string, r models.DateRange) ([]models.CODSettlementEvent, error)
}

// Repository implements the RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ledger repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// InsertCollection appends a collection event. The cod_collections table has
// a unique constraint on order_id; a violation means a collection already
// exists and surfaces as ErrDuplicateCollection at the service layer.
func (r *Repository) InsertCollection(ctx context.Context, ev *models.CODCollectionEvent) error {
	query := `
		INSERT INTO cod_collections (order_id, delivery_id, collected_by, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, collected_at`
	err := r.db.QueryRow(ctx, query, ev.OrderID, ev.DeliveryID, ev.CollectedBy, ev.Amount).
		Scan(&ev.ID, &ev.CollectedAt)
	if err != nil {
		return fmt.Errorf("repository.InsertCollection: %w", err)
	}
	return nil
}

// FindCollectionByOrder returns the single collection event for an order, or
// ErrNotFound when none has been recorded yet.
func (r *Repository) FindCollectionByOrder(ctx context.Context, orderID string) (*models.CODCollectionEvent, error) {
	query := `
		SELECT id, order_id, delivery_id, collected_by, amount, collected_at
		FROM cod_collections
		WHERE order_id = $1`
	var ev models.CODCollectionEvent
	err := r.db.QueryRow(ctx, query, orderID).
		Scan(&ev.ID, &ev.OrderID, &ev.DeliveryID, &ev.CollectedBy, &ev.Amount, &ev.CollectedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindCollectionByOrder: %w", err)
	}
	return &ev, nil
}

// ListCollectionsByPartner returns a partner's collection events inside the
// range, oldest first. A zero range bound is unbounded.
func (r *Repository) ListCollectionsByPartner(ctx context.Context, partnerID string, dr models.DateRange) ([]models.CODCollectionEvent, error) {
	query := `
		SELECT id, order_id, delivery_id, collected_by, amount, collected_at
		FROM cod_collections
		WHERE collected_by = $1
		  AND ($2::timestamptz IS NULL OR collected_at >= $2)
		  AND ($3::timestamptz IS NULL OR collected_at <= $3)
		ORDER BY collected_at`
	rows, err := r.db.Query(ctx, query, partnerID, nullableTime(dr.From), nullableTime(dr.To))
	if err != nil {
		return nil, fmt.Errorf("repository.ListCollectionsByPartner: %w", err)
	}
	defer rows.Close()

	var events []models.CODCollectionEvent
	for rows.Next() {
		var ev models.CODCollectionEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.DeliveryID, &ev.CollectedBy, &ev.Amount, &ev.CollectedAt); err != nil {
			return nil, fmt.Errorf("repository.ListCollectionsByPartner scan: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListCollectionsByPartner rows: %w", err)
	}
	return events, nil
}

// InsertSettlement appends a settlement event.
func (r *Repository) InsertSettlement(ctx context.Context, ev *models.CODSettlementEvent) error {
	query := `
		INSERT INTO cod_settlements (partner_id, amount, order_ids)
		VALUES ($1, $2, $3)
		RETURNING id, submitted_at`
	err := r.db.QueryRow(ctx, query, ev.PartnerID, ev.Amount, ev.OrderIDs).
		Scan(&ev.ID, &ev.SubmittedAt)
	if err != nil {
		return fmt.Errorf("repository.InsertSettlement: %w", err)
	}
	return nil
}

// ListSettlementsByPartner returns a partner's settlement events inside the
// range, oldest first.
func (r *Repository) ListSettlementsByPartner(ctx context.Context, partnerID string, dr models.DateRange) ([]models.CODSettlementEvent, error) {
	query := `
		SELECT id, partner_id, amount, order_ids, submitted_at
		FROM cod_settlements
		WHERE partner_id = $1
		  AND ($2::timestamptz IS NULL OR submitted_at >= $2)
		  AND ($3::timestamptz IS NULL OR submitted_at <= $3)
		ORDER BY submitted_at`
	rows, err := r.db.Query(ctx, query, partnerID, nullableTime(dr.From), nullableTime(dr.To))
	if err != nil {
		return nil, fmt.Errorf("repository.ListSettlementsByPartner: %w", err)
	}
	defer rows.Close()

	var events []models.CODSettlementEvent
	for rows.Next() {
		var ev models.CODSettlementEvent
		if err := rows.Scan(&ev.ID, &ev.PartnerID, &ev.Amount, &ev.OrderIDs, &ev.SubmittedAt); err != nil {
			return nil, fmt.Errorf("repository.ListSettlementsByPartner scan: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListSettlementsByPartner rows: %w", err)
	}
	return events, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
