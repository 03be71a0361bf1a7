package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-delivery/internal/metrics"
	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/lock"
)

// ReceiptNotifierInterface sends a settlement receipt to the partner. Sending
// is best-effort; a failed receipt never fails the settlement.
type ReceiptNotifierInterface interface {
	SendSettlementReceipt(ctx context.Context, toEmail string, ev *models.CODSettlementEvent, outstanding int64) error
}

// EarningsInvalidatorInterface mirrors the delivery module's hook: ledger
// mutations invalidate the partner's cached earnings projection.
type EarningsInvalidatorInterface interface {
	Invalidate(partnerID string)
}

// ServiceInterface defines the contract for the COD ledger.
type ServiceInterface interface {
	RecordCollection(ctx context.Context, partnerID string, req models.RecordCollectionRequest) (*models.CODCollectionEvent, error)
	RecordSettlement(ctx context.Context, partnerID, partnerEmail string, req models.RecordSettlementRequest) (*models.CODSettlementEvent, error)
	OutstandingBalance(ctx context.Context, partnerID string) (int64, error)
	Summary(ctx context.Context, partnerID string, r models.DateRange) (*models.CODSummary, error)
	ListCollections(ctx context.Context, partnerID string, r models.DateRange) ([]models.CODCollectionEvent, error)
	CollectedAmount(ctx context.Context, orderID string) (int64, error)
}

// Service implements the COD ledger. Writes are serialized per order id for
// collections and per partner id for settlements; both paths read before they
// append. Balances are always folded from the event log.
type Service struct {
	repo      RepositoryInterface
	notifier  ReceiptNotifierInterface
	earnings  EarningsInvalidatorInterface
	locks     *lock.Keyed
	opTimeout time.Duration
}

// NewService creates a new ledger service. notifier and earnings may be nil.
func NewService(repo RepositoryInterface, notifier ReceiptNotifierInterface, earnings EarningsInvalidatorInterface, opTimeout time.Duration) *Service {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Service{
		repo:      repo,
		notifier:  notifier,
		earnings:  earnings,
		locks:     lock.NewKeyed(),
		opTimeout: opTimeout,
	}
}

// SetEarningsInvalidator wires the earnings hook after construction. The
// earnings projection reads this service, so the two are built in sequence
// and this breaks the cycle.
func (s *Service) SetEarningsInvalidator(earnings EarningsInvalidatorInterface) {
	s.earnings = earnings
}

// RecordCollection appends the single collection event for an order. At most
// one collection exists per order; the domain models full-amount collection in
// one action, so a second attempt fails with ErrDuplicateCollection and the
// existing event stays untouched.
func (s *Service) RecordCollection(ctx context.Context, partnerID string, req models.RecordCollectionRequest) (*models.CODCollectionEvent, error) {
	s.locks.Lock("order:" + req.OrderID)
	defer s.locks.Unlock("order:" + req.OrderID)

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if _, err := s.repo.FindCollectionByOrder(opCtx, req.OrderID); err == nil {
		metrics.CODRejectionsTotal.WithLabelValues("duplicate_collection").Inc()
		return nil, models.ErrDuplicateCollection
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, mapTimeout(fmt.Errorf("service.RecordCollection lookup: %w", err))
	}

	ev := &models.CODCollectionEvent{
		OrderID:     req.OrderID,
		DeliveryID:  req.DeliveryID,
		CollectedBy: partnerID,
		Amount:      req.Amount,
	}
	if err := s.repo.InsertCollection(opCtx, ev); err != nil {
		return nil, mapTimeout(fmt.Errorf("service.RecordCollection: %w", err))
	}
	metrics.CODCollectionsTotal.Inc()

	if s.earnings != nil {
		s.earnings.Invalidate(partnerID)
	}
	return ev, nil
}

// RecordSettlement appends a settlement event after validating it against the
// partner's outstanding balance. The read-then-append runs under the partner's
// lock so a settlement cannot race past the balance it just validated.
func (s *Service) RecordSettlement(ctx context.Context, partnerID, partnerEmail string, req models.RecordSettlementRequest) (*models.CODSettlementEvent, error) {
	s.locks.Lock("partner:" + partnerID)
	defer s.locks.Unlock("partner:" + partnerID)

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	outstanding, err := s.outstanding(opCtx, partnerID)
	if err != nil {
		return nil, mapTimeout(err)
	}
	if req.Amount > outstanding {
		metrics.CODRejectionsTotal.WithLabelValues("oversettlement").Inc()
		return nil, models.ErrOversettlement
	}

	ev := &models.CODSettlementEvent{
		PartnerID: partnerID,
		Amount:    req.Amount,
		OrderIDs:  req.OrderIDs,
	}
	if err := s.repo.InsertSettlement(opCtx, ev); err != nil {
		return nil, mapTimeout(fmt.Errorf("service.RecordSettlement: %w", err))
	}
	metrics.CODSettlementsTotal.Inc()

	if s.earnings != nil {
		s.earnings.Invalidate(partnerID)
	}
	if s.notifier != nil && partnerEmail != "" {
		// Receipt is best-effort and must not hold up the settlement response.
		receipt := *ev
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
			defer cancel()
			_ = s.notifier.SendSettlementReceipt(ctx, partnerEmail, &receipt, outstanding-receipt.Amount)
		}()
	}
	return ev, nil
}

// OutstandingBalance returns collected minus settled for the partner across
// all time. This is the "COD to submit" figure shown in the partner app.
func (s *Service) OutstandingBalance(ctx context.Context, partnerID string) (int64, error) {
	return s.outstanding(ctx, partnerID)
}

func (s *Service) outstanding(ctx context.Context, partnerID string) (int64, error) {
	collections, err := s.repo.ListCollectionsByPartner(ctx, partnerID, models.DateRange{})
	if err != nil {
		return 0, fmt.Errorf("service.outstanding collections: %w", err)
	}
	settlements, err := s.repo.ListSettlementsByPartner(ctx, partnerID, models.DateRange{})
	if err != nil {
		return 0, fmt.Errorf("service.outstanding settlements: %w", err)
	}

	var balance int64
	for _, ev := range collections {
		balance += ev.Amount
	}
	for _, ev := range settlements {
		balance -= ev.Amount
	}
	return balance, nil
}

// Summary folds the partner's events inside the range into the read model
// consumed by the earnings aggregator and the partner app's COD screen.
func (s *Service) Summary(ctx context.Context, partnerID string, r models.DateRange) (*models.CODSummary, error) {
	collections, err := s.repo.ListCollectionsByPartner(ctx, partnerID, r)
	if err != nil {
		return nil, fmt.Errorf("service.Summary collections: %w", err)
	}
	settlements, err := s.repo.ListSettlementsByPartner(ctx, partnerID, r)
	if err != nil {
		return nil, fmt.Errorf("service.Summary settlements: %w", err)
	}

	summary := &models.CODSummary{}
	settled := make(map[string]bool)
	for _, ev := range settlements {
		summary.TotalSubmitted += ev.Amount
		for _, orderID := range ev.OrderIDs {
			settled[orderID] = true
		}
	}
	for _, ev := range collections {
		summary.TotalCollected += ev.Amount
		if !settled[ev.OrderID] {
			summary.PendingCollections = append(summary.PendingCollections, ev)
		}
	}
	summary.CollectedNotSubmitted = summary.TotalCollected - summary.TotalSubmitted
	return summary, nil
}

// ListCollections returns the raw collection events for the partner app.
func (s *Service) ListCollections(ctx context.Context, partnerID string, r models.DateRange) ([]models.CODCollectionEvent, error) {
	return s.repo.ListCollectionsByPartner(ctx, partnerID, r)
}

// CollectedAmount reports the total collected for an order. It backs the
// delivery state machine's COD guard; no collection means zero, not an error.
func (s *Service) CollectedAmount(ctx context.Context, orderID string) (int64, error) {
	ev, err := s.repo.FindCollectionByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("service.CollectedAmount: %w", err)
	}
	return ev.Amount, nil
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return err
}
