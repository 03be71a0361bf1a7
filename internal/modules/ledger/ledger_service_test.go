package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-delivery/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- in-memory fakes ----------

type fakeLedgerRepo struct {
	mu          sync.Mutex
	collections []models.CODCollectionEvent
	settlements []models.CODSettlementEvent
}

func (r *fakeLedgerRepo) InsertCollection(_ context.Context, ev *models.CODCollectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = uuid.New().String()
	ev.CollectedAt = time.Now()
	r.collections = append(r.collections, *ev)
	return nil
}

func (r *fakeLedgerRepo) FindCollectionByOrder(_ context.Context, orderID string) (*models.CODCollectionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.collections {
		if ev.OrderID == orderID {
			cp := ev
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeLedgerRepo) ListCollectionsByPartner(_ context.Context, partnerID string, dr models.DateRange) ([]models.CODCollectionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CODCollectionEvent
	for _, ev := range r.collections {
		if ev.CollectedBy == partnerID && dr.Contains(ev.CollectedAt) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) InsertSettlement(_ context.Context, ev *models.CODSettlementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = uuid.New().String()
	ev.SubmittedAt = time.Now()
	r.settlements = append(r.settlements, *ev)
	return nil
}

func (r *fakeLedgerRepo) ListSettlementsByPartner(_ context.Context, partnerID string, dr models.DateRange) ([]models.CODSettlementEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CODSettlementEvent
	for _, ev := range r.settlements {
		if ev.PartnerID == partnerID && dr.Contains(ev.SubmittedAt) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	receipts []string
}

func (n *recordingNotifier) SendSettlementReceipt(_ context.Context, toEmail string, _ *models.CODSettlementEvent, _ int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, toEmail)
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (i *recordingInvalidator) Invalidate(partnerID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, partnerID)
}

func newTestService() (*Service, *fakeLedgerRepo, *recordingNotifier, *recordingInvalidator) {
	repo := &fakeLedgerRepo{}
	notifier := &recordingNotifier{}
	invalidator := &recordingInvalidator{}
	svc := NewService(repo, notifier, invalidator, time.Second)
	return svc, repo, notifier, invalidator
}

func collect(t *testing.T, svc *Service, partnerID, orderID string, amount int64) *models.CODCollectionEvent {
	t.Helper()
	ev, err := svc.RecordCollection(context.Background(), partnerID, models.RecordCollectionRequest{
		OrderID:    orderID,
		DeliveryID: uuid.New().String(),
		Amount:     amount,
	})
	require.NoError(t, err)
	return ev
}

// ---------- tests ----------

func TestRecordCollectionOncePerOrder(t *testing.T) {
	svc, repo, _, invalidator := newTestService()
	partnerID := uuid.New().String()
	orderID := uuid.New().String()

	ev := collect(t, svc, partnerID, orderID, 50000)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, partnerID, ev.CollectedBy)

	_, err := svc.RecordCollection(context.Background(), partnerID, models.RecordCollectionRequest{
		OrderID:    orderID,
		DeliveryID: uuid.New().String(),
		Amount:     50000,
	})
	require.ErrorIs(t, err, models.ErrDuplicateCollection)

	repo.mu.Lock()
	count := len(repo.collections)
	repo.mu.Unlock()
	assert.Equal(t, 1, count, "duplicate must not append a second event")

	invalidator.mu.Lock()
	assert.Equal(t, []string{partnerID}, invalidator.calls)
	invalidator.mu.Unlock()
}

func TestSettlementCannotExceedBalance(t *testing.T) {
	// Partner has collected ₹500 and tries to settle ₹600.
	svc, _, _, _ := newTestService()
	partnerID := uuid.New().String()
	collect(t, svc, partnerID, uuid.New().String(), 50000)

	_, err := svc.RecordSettlement(context.Background(), partnerID, "", models.RecordSettlementRequest{Amount: 60000})
	require.ErrorIs(t, err, models.ErrOversettlement)

	balance, err := svc.OutstandingBalance(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance, "rejected settlement must leave the balance intact")

	ev, err := svc.RecordSettlement(context.Background(), partnerID, "", models.RecordSettlementRequest{Amount: 50000})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), ev.Amount)

	balance, err = svc.OutstandingBalance(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestBalanceIsFoldedFromEvents(t *testing.T) {
	svc, _, _, _ := newTestService()
	partnerID := uuid.New().String()

	collect(t, svc, partnerID, uuid.New().String(), 12000)
	collect(t, svc, partnerID, uuid.New().String(), 8050)
	collect(t, svc, partnerID, uuid.New().String(), 30000)

	_, err := svc.RecordSettlement(context.Background(), partnerID, "", models.RecordSettlementRequest{Amount: 20000})
	require.NoError(t, err)

	balance, err := svc.OutstandingBalance(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30050), balance)
}

func TestSummaryPendingExcludesSettledOrders(t *testing.T) {
	svc, _, _, _ := newTestService()
	partnerID := uuid.New().String()
	settledOrder := uuid.New().String()
	openOrder := uuid.New().String()

	collect(t, svc, partnerID, settledOrder, 20000)
	collect(t, svc, partnerID, openOrder, 15000)

	_, err := svc.RecordSettlement(context.Background(), partnerID, "", models.RecordSettlementRequest{
		Amount:   20000,
		OrderIDs: []string{settledOrder},
	})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), partnerID, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(35000), summary.TotalCollected)
	assert.Equal(t, int64(20000), summary.TotalSubmitted)
	assert.Equal(t, int64(15000), summary.CollectedNotSubmitted)
	require.Len(t, summary.PendingCollections, 1)
	assert.Equal(t, openOrder, summary.PendingCollections[0].OrderID)
}

func TestCollectedAmountWithoutEventIsZero(t *testing.T) {
	svc, _, _, _ := newTestService()

	amount, err := svc.CollectedAmount(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Zero(t, amount)

	orderID := uuid.New().String()
	collect(t, svc, uuid.New().String(), orderID, 9900)

	amount, err = svc.CollectedAmount(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), amount)
}

func TestConcurrentSettlementsOnlyOneDrainsBalance(t *testing.T) {
	svc, repo, _, _ := newTestService()
	partnerID := uuid.New().String()
	collect(t, svc, partnerID, uuid.New().String(), 50000)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.RecordSettlement(context.Background(), partnerID, "",
				models.RecordSettlementRequest{Amount: 50000})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, models.ErrOversettlement)
		}
	}
	assert.Equal(t, 1, successes)

	repo.mu.Lock()
	count := len(repo.settlements)
	repo.mu.Unlock()
	assert.Equal(t, 1, count)

	balance, err := svc.OutstandingBalance(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestConcurrentCollectionsForSameOrder(t *testing.T) {
	svc, repo, _, _ := newTestService()
	partnerID := uuid.New().String()
	orderID := uuid.New().String()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.RecordCollection(context.Background(), partnerID, models.RecordCollectionRequest{
				OrderID:    orderID,
				DeliveryID: uuid.New().String(),
				Amount:     50000,
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, models.ErrDuplicateCollection)
		}
	}
	assert.Equal(t, 1, successes)

	repo.mu.Lock()
	count := len(repo.collections)
	repo.mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestSettlementReceiptSentToPartnerEmail(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	partnerID := uuid.New().String()
	collect(t, svc, partnerID, uuid.New().String(), 50000)

	_, err := svc.RecordSettlement(context.Background(), partnerID, "rider@example.com",
		models.RecordSettlementRequest{Amount: 50000})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.receipts) == 1
	}, time.Second, 10*time.Millisecond)

	notifier.mu.Lock()
	assert.Equal(t, "rider@example.com", notifier.receipts[0])
	notifier.mu.Unlock()
}

func TestSettlementWithoutEmailSkipsReceipt(t *testing.T) {
	svc, _, notifier, invalidator := newTestService()
	partnerID := uuid.New().String()
	collect(t, svc, partnerID, uuid.New().String(), 10000)

	_, err := svc.RecordSettlement(context.Background(), partnerID, "",
		models.RecordSettlementRequest{Amount: 10000})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	notifier.mu.Lock()
	assert.Empty(t, notifier.receipts)
	notifier.mu.Unlock()

	invalidator.mu.Lock()
	assert.Len(t, invalidator.calls, 2, "collection and settlement each invalidate the projection")
	invalidator.mu.Unlock()
}
