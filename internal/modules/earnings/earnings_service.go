package earnings

import (
	"context"
	"fmt"
	"sync"

	"marketplace-delivery/internal/models"
)

// DeliveryReaderInterface is the slice of the delivery store the projection
// folds over. Read-only.
type DeliveryReaderInterface interface {
	ListTerminalByPartner(ctx context.Context, partnerID string, r models.DateRange) ([]*models.Delivery, error)
}

// LedgerReaderInterface is the ledger's read-side surface. Read-only.
type LedgerReaderInterface interface {
	Summary(ctx context.Context, partnerID string, r models.DateRange) (*models.CODSummary, error)
	OutstandingBalance(ctx context.Context, partnerID string) (int64, error)
}

// ServiceInterface defines the contract for the earnings projection.
type ServiceInterface interface {
	Summarize(ctx context.Context, partnerID string, r models.DateRange) (*models.EarningsSummary, error)
	Invalidate(partnerID string)
}

// Service derives partner-facing earnings summaries by folding over terminal
// deliveries and the COD ledger. It never mutates either source. The cache is
// an optimization only: every delivery or ledger mutation invalidates the
// partner's entry, and a recompute from the logs always yields the same
// answer.
type Service struct {
	deliveries DeliveryReaderInterface
	ledger     LedgerReaderInterface

	mu    sync.RWMutex
	cache map[string]*models.EarningsSummary // keyed by partner id, full-history entries only
	gens  map[string]uint64                  // bumped by Invalidate; guards against caching a pre-mutation fold
}

// NewService creates a new earnings service.
func NewService(deliveries DeliveryReaderInterface, ledger LedgerReaderInterface) *Service {
	return &Service{
		deliveries: deliveries,
		ledger:     ledger,
		cache:      make(map[string]*models.EarningsSummary),
		gens:       make(map[string]uint64),
	}
}

// Summarize computes the earnings summary for a partner and date range.
// Only unbounded-range results are cached; ranged queries are cheap enough to
// fold on demand and caching per range would multiply invalidation surface.
func (s *Service) Summarize(ctx context.Context, partnerID string, r models.DateRange) (*models.EarningsSummary, error) {
	cacheable := r.From.IsZero() && r.To.IsZero()
	var gen uint64
	if cacheable {
		s.mu.RLock()
		cached, ok := s.cache[partnerID]
		gen = s.gens[partnerID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	deliveries, err := s.deliveries.ListTerminalByPartner(ctx, partnerID, r)
	if err != nil {
		return nil, fmt.Errorf("service.Summarize deliveries: %w", err)
	}

	summary := &models.EarningsSummary{PartnerID: partnerID, Range: r}
	for _, d := range deliveries {
		switch d.Status {
		case models.StatusDelivered:
			summary.Completed++
			summary.TotalEarnings += d.DeliveryFee
		case models.StatusCancelled:
			summary.Cancelled++
		}
	}

	cod, err := s.ledger.Summary(ctx, partnerID, r)
	if err != nil {
		return nil, fmt.Errorf("service.Summarize ledger: %w", err)
	}
	summary.COD = *cod
	summary.CODSubmitted = cod.TotalSubmitted

	outstanding, err := s.ledger.OutstandingBalance(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("service.Summarize balance: %w", err)
	}
	summary.CODOutstanding = outstanding

	if cacheable {
		// An Invalidate that landed while this fold was reading its snapshots
		// bumps the generation; storing then would pin a pre-mutation summary.
		s.mu.Lock()
		if s.gens[partnerID] == gen {
			s.cache[partnerID] = summary
		}
		s.mu.Unlock()
	}
	return summary, nil
}

// Invalidate drops the partner's cached summary. Called by the delivery state
// machine and the ledger on every mutation the projection depends on.
func (s *Service) Invalidate(partnerID string) {
	s.mu.Lock()
	s.gens[partnerID]++
	delete(s.cache, partnerID)
	s.mu.Unlock()
}
