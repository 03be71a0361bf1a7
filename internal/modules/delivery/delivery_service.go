package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-delivery/internal/metrics"
	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/lock"
)

// OrderReaderInterface is the read-only view of the external order/payment
// service consulted by the COD guard. RequestPaymentCompletion asks (does not
// enforce) a payment-status flip for online-paid orders.
type OrderReaderInterface interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	RequestPaymentCompletion(ctx context.Context, orderID string) error
}

// CODReaderInterface is the slice of the ledger the guard needs: the total
// amount collected for an order. The state machine receives a value and never
// holds a reference into ledger state.
type CODReaderInterface interface {
	CollectedAmount(ctx context.Context, orderID string) (int64, error)
}

// EarningsInvalidatorInterface lets the state machine invalidate a partner's
// cached earnings projection when a delivery reaches a terminal state.
type EarningsInvalidatorInterface interface {
	Invalidate(partnerID string)
}

// TrackingHinterInterface carries the sampling-frequency hint to the location
// tracker when a delivery enters or leaves the active navigation phase. It is
// a hint: tracking failures never affect a transition's outcome.
type TrackingHinterInterface interface {
	SetNavigationMode(partnerID string, active bool)
}

// legalEdges is the delivery lifecycle graph. Terminal states have no entry.
var legalEdges = map[models.DeliveryStatus][]models.DeliveryStatus{
	models.StatusPending:  {models.StatusAccepted, models.StatusCancelled},
	models.StatusAccepted: {models.StatusPickedUp, models.StatusCancelled},
	models.StatusPickedUp: {models.StatusOnTheWay},
	models.StatusOnTheWay: {models.StatusDelivered},
}

func edgeAllowed(from, to models.DeliveryStatus) bool {
	for _, s := range legalEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ServiceInterface defines the contract for the delivery state machine.
type ServiceInterface interface {
	CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error)
	GetDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error)
	ListPartnerDeliveries(ctx context.Context, partnerID string, page, limit int) ([]*models.Delivery, int, error)
	RequestTransition(ctx context.Context, deliveryID string, req models.TransitionRequest) (*models.TransitionResponse, error)
	Reject(ctx context.Context, deliveryID string, req models.RejectRequest) (*models.TransitionResponse, error)
}

// Service is the authority for all delivery status changes. Transitions for
// the same delivery are serialized through a keyed mutex because the COD guard
// is a check-then-act sequence; different deliveries proceed in parallel.
type Service struct {
	repo      RepositoryInterface
	orders    OrderReaderInterface
	ledger    CODReaderInterface
	earnings  EarningsInvalidatorInterface
	tracker   TrackingHinterInterface
	locks     *lock.Keyed
	opTimeout time.Duration
}

// NewService creates a new delivery service. earnings and tracker may be nil;
// both are best-effort side effects.
func NewService(repo RepositoryInterface, orders OrderReaderInterface, ledger CODReaderInterface, earnings EarningsInvalidatorInterface, tracker TrackingHinterInterface, opTimeout time.Duration) *Service {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Service{
		repo:      repo,
		orders:    orders,
		ledger:    ledger,
		earnings:  earnings,
		tracker:   tracker,
		locks:     lock.NewKeyed(),
		opTimeout: opTimeout,
	}
}

// CreateDelivery registers a new delivery assignment. Addresses and fee are
// snapshotted here; the dispatch collaborator owns choosing the partner.
func (s *Service) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error) {
	d, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("service.CreateDelivery: %w", err)
	}
	return d, nil
}

// GetDelivery retrieves a delivery with its status history.
func (s *Service) GetDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	return s.repo.FindByID(ctx, deliveryID)
}

// ListPartnerDeliveries retrieves a partner's deliveries, newest first.
func (s *Service) ListPartnerDeliveries(ctx context.Context, partnerID string, page, limit int) ([]*models.Delivery, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByPartner(ctx, partnerID, page, limit)
}

// RequestTransition moves a delivery along a legal edge of the lifecycle
// graph. Replaying a (delivery, status, key) triple that already produced a
// history entry is answered as a no-op success with the current status.
// Cancellation goes through Reject, which enforces the reason rule.
func (s *Service) RequestTransition(ctx context.Context, deliveryID string, req models.TransitionRequest) (*models.TransitionResponse, error) {
	if !req.TargetStatus.Valid() || req.TargetStatus == models.StatusPending {
		metrics.TransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, models.ErrInvalidTransition
	}
	if req.TargetStatus == models.StatusCancelled {
		return s.Reject(ctx, deliveryID, models.RejectRequest{IdempotencyKey: req.IdempotencyKey})
	}
	return s.transition(ctx, deliveryID, req.TargetStatus, req.IdempotencyKey, "")
}

// Reject cancels a pending or accepted delivery. A reason is required once
// the delivery has been accepted; the cancelled row keeps its full history so
// the dispatch collaborator can audit the reassignment it creates.
func (s *Service) Reject(ctx context.Context, deliveryID string, req models.RejectRequest) (*models.TransitionResponse, error) {
	return s.transition(ctx, deliveryID, models.StatusCancelled, req.IdempotencyKey, req.Reason)
}

func (s *Service) transition(ctx context.Context, deliveryID string, target models.DeliveryStatus, key, reason string) (*models.TransitionResponse, error) {
	start := time.Now()
	defer func() { metrics.TransitionDuration.Observe(time.Since(start).Seconds()) }()

	s.locks.Lock(deliveryID)
	defer s.locks.Unlock(deliveryID)

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	d, err := s.repo.FindByID(opCtx, deliveryID)
	if err != nil {
		return nil, mapTimeout(err)
	}

	// Idempotent replay: the exact same request already went through.
	for _, ch := range d.StatusHistory {
		if ch.Status == target && ch.IdempotencyKey == key {
			metrics.TransitionReplaysTotal.Inc()
			return &models.TransitionResponse{DeliveryID: d.ID, Status: d.Status, Replayed: true}, nil
		}
	}

	if !edgeAllowed(d.Status, target) {
		// Covers terminal states and a same-status request under a different
		// key: someone else already made this transition.
		metrics.TransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, models.ErrInvalidTransition
	}

	if target == models.StatusCancelled && d.Status == models.StatusAccepted && reason == "" {
		return nil, models.ErrRejectReasonRequired
	}

	var order *models.Order
	if target == models.StatusDelivered {
		order, err = s.orders.FindByID(opCtx, d.OrderID)
		if err != nil {
			return nil, mapTimeout(fmt.Errorf("service.transition order lookup: %w", err))
		}
		if order.PaymentMethod == models.PaymentMethodCOD {
			collected, err := s.ledger.CollectedAmount(opCtx, d.OrderID)
			if err != nil {
				return nil, mapTimeout(fmt.Errorf("service.transition ledger read: %w", err))
			}
			if collected < order.TotalAmount {
				metrics.TransitionsRejectedTotal.WithLabelValues("collection_required").Inc()
				return nil, models.ErrCollectionRequired
			}
		}
	}

	change := models.StatusChange{Status: target, IdempotencyKey: key, CreatedAt: time.Now()}
	if err := s.repo.ApplyTransition(opCtx, deliveryID, d.Status, change, reason); err != nil {
		return nil, mapTimeout(err)
	}
	metrics.TransitionsTotal.WithLabelValues(string(target)).Inc()

	s.applySideEffects(d, order, target)

	return &models.TransitionResponse{DeliveryID: d.ID, Status: target}, nil
}

// applySideEffects runs the best-effort entry hooks for the new status. None
// of them can fail the transition; it has already been committed.
func (s *Service) applySideEffects(d *models.Delivery, order *models.Order, target models.DeliveryStatus) {
	partnerID := d.PartnerID.String
	switch target {
	case models.StatusOnTheWay:
		if s.tracker != nil && d.PartnerID.Valid {
			s.tracker.SetNavigationMode(partnerID, true)
		}
	case models.StatusDelivered:
		if s.tracker != nil && d.PartnerID.Valid {
			s.tracker.SetNavigationMode(partnerID, false)
		}
		if s.earnings != nil && d.PartnerID.Valid {
			s.earnings.Invalidate(partnerID)
		}
		if order != nil && order.PaymentMethod == models.PaymentMethodOnline {
			// Ask the payment service to mark the order paid. Fire-and-forget:
			// the order service owns payment state.
			go func(orderID string) {
				ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
				defer cancel()
				_ = s.orders.RequestPaymentCompletion(ctx, orderID)
			}(d.OrderID)
		}
	case models.StatusCancelled:
		if s.earnings != nil && d.PartnerID.Valid {
			s.earnings.Invalidate(partnerID)
		}
	}
}

// mapTimeout converts a deadline expiry into the retryable ErrTimeout so the
// caller can re-issue the identical request with the same idempotency key.
func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return err
}
