package tracking

import (
	"context"
	"errors"
	"fmt"

	"marketplace-delivery/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepositoryInterface persists per-partner tracking sessions. Sessions
// are keyed by partner id so two partners' sessions never collide; location
// samples themselves are ephemeral and never hit the database.
type SessionRepositoryInterface interface {
	StartSession(ctx context.Context, partnerID string) error
	// StopSession is idempotent: stopping a session that does not exist or is
	// already stopped is a no-op.
	StopSession(ctx context.Context, partnerID string) error
	FindSession(ctx context.Context, partnerID string) (*models.TrackingSession, error)
}

// SessionRepository is a PostgreSQL implementation of SessionRepositoryInterface.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new repository instance.
func NewSessionRepository(db *pgxpool.Pool) SessionRepositoryInterface {
	return &SessionRepository{db: db}
}

// StartSession activates (or reactivates) the partner's tracking session.
func (r *SessionRepository) StartSession(ctx context.Context, partnerID string) error {
	query := `
		INSERT INTO partner_tracking_sessions (partner_id, started_at, active)
		VALUES ($1, NOW(), TRUE)
		ON CONFLICT (partner_id)
		DO UPDATE SET started_at = NOW(), stopped_at = NULL, active = TRUE`
	if _, err := r.db.Exec(ctx, query, partnerID); err != nil {
		return fmt.Errorf("repo.StartSession: %w", err)
	}
	return nil
}

// StopSession deactivates the partner's session if one exists.
func (r *SessionRepository) StopSession(ctx context.Context, partnerID string) error {
	query := `
		UPDATE partner_tracking_sessions
		SET active = FALSE, stopped_at = NOW()
		WHERE partner_id = $1 AND active`
	if _, err := r.db.Exec(ctx, query, partnerID); err != nil {
		return fmt.Errorf("repo.StopSession: %w", err)
	}
	// Zero rows affected means already stopped; that is success.
	return nil
}

// FindSession returns the partner's session row.
func (r *SessionRepository) FindSession(ctx context.Context, partnerID string) (*models.TrackingSession, error) {
	query := `
		SELECT partner_id, started_at, stopped_at, active
		FROM partner_tracking_sessions
		WHERE partner_id = $1`
	var s models.TrackingSession
	err := r.db.QueryRow(ctx, query, partnerID).Scan(&s.PartnerID, &s.StartedAt, &s.StoppedAt, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindSession: %w", err)
	}
	return &s, nil
}
