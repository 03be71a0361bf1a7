package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- in-memory fakes ----------

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.TrackingSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.TrackingSession)}
}

func (r *fakeSessionRepo) StartSession(_ context.Context, partnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[partnerID] = &models.TrackingSession{
		PartnerID: partnerID,
		StartedAt: time.Now(),
		Active:    true,
	}
	return nil
}

func (r *fakeSessionRepo) StopSession(_ context.Context, partnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[partnerID]; ok && s.Active {
		s.Active = false
		s.StoppedAt.Time = time.Now()
		s.StoppedAt.Valid = true
	}
	return nil
}

func (r *fakeSessionRepo) FindSession(_ context.Context, partnerID string) (*models.TrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[partnerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeRoutingClient struct {
	est *models.ETAEstimate
	err error
}

func (c *fakeRoutingClient) GetRoute(_ context.Context, _, _, _, _ float64) (*models.ETAEstimate, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.est, nil
}

func newTrackedPartner(t *testing.T, svc *Service, capability *ClientReportedCapability) string {
	t.Helper()
	partnerID := uuid.New().String()
	capability.SetGranted(partnerID, true)
	require.NoError(t, svc.Start(context.Background(), partnerID))
	return partnerID
}

func report(t *testing.T, svc *Service, partnerID string, lat, lng float64, at time.Time) {
	t.Helper()
	require.NoError(t, svc.Report(context.Background(), partnerID, models.LocationReportRequest{
		Latitude:  lat,
		Longitude: lng,
		SampledAt: at,
	}))
}

// ---------- tests ----------

func TestZeroCoordinatesAreValid(t *testing.T) {
	// The equator and the prime meridian are real places; a zero latitude or
	// longitude must pass request validation.
	v := utils.GetValidator()
	assert.NoError(t, v.Validate(models.LocationReportRequest{
		Latitude:  51.4779,
		Longitude: 0,
		SampledAt: time.Now(),
	}))
	assert.NoError(t, v.Validate(models.LocationReportRequest{
		Latitude:  0,
		Longitude: 6.7319,
		SampledAt: time.Now(),
	}))
	assert.NoError(t, v.Validate(models.LocationReportRequest{
		SampledAt: time.Now(),
	}))

	assert.Error(t, v.Validate(models.LocationReportRequest{
		Latitude:  91,
		SampledAt: time.Now(),
	}))
	assert.Error(t, v.Validate(models.LocationReportRequest{
		Longitude: -181,
		SampledAt: time.Now(),
	}))
	assert.Error(t, v.Validate(models.LocationReportRequest{Latitude: 12.97, Longitude: 77.59}),
		"a sample without its timestamp cannot be ordered")
}

func TestStartRequiresLocationPermission(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 0, 0)
	partnerID := uuid.New().String()

	err := svc.Start(context.Background(), partnerID)
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	capability.SetGranted(partnerID, true)
	assert.NoError(t, svc.Start(context.Background(), partnerID))
}

func TestReportWithoutSessionFails(t *testing.T) {
	svc := NewService(newFakeSessionRepo(), NewClientReportedCapability(), nil, 25, 0, 0)

	err := svc.Report(context.Background(), uuid.New().String(), models.LocationReportRequest{
		Latitude:  12.97,
		Longitude: 77.59,
		SampledAt: time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrNotTracking)
}

func TestOutOfOrderSampleIsDropped(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)

	now := time.Now()
	report(t, svc, partnerID, 12.9700, 77.5900, now)
	// A stale sample that arrives late must not roll the position back.
	report(t, svc, partnerID, 12.9000, 77.5000, now.Add(-30*time.Second))

	sample, err := svc.Sample(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Equal(t, 12.9700, sample.Latitude)
	assert.Equal(t, 77.5900, sample.Longitude)
	assert.True(t, sample.SampledAt.Equal(now))
}

func TestEqualTimestampDoesNotReplace(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)

	now := time.Now()
	report(t, svc, partnerID, 12.9700, 77.5900, now)
	report(t, svc, partnerID, 12.9800, 77.6000, now)

	sample, err := svc.Sample(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Equal(t, 12.9700, sample.Latitude)
}

func TestThrottleDropsNearbyRapidSamples(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 5*time.Second, 50)
	partnerID := newTrackedPartner(t, svc, capability)

	now := time.Now()
	report(t, svc, partnerID, 12.9700, 77.5900, now)
	// One second later, a couple of meters away: inside both thresholds.
	report(t, svc, partnerID, 12.97001, 77.59001, now.Add(time.Second))

	sample, err := svc.Sample(context.Background(), partnerID)
	require.NoError(t, err)
	assert.True(t, sample.SampledAt.Equal(now), "throttled sample must not replace the held one")

	// A sample past the minimum interval is accepted even without movement.
	later := now.Add(6 * time.Second)
	report(t, svc, partnerID, 12.97001, 77.59001, later)
	sample, err = svc.Sample(context.Background(), partnerID)
	require.NoError(t, err)
	assert.True(t, sample.SampledAt.Equal(later))
}

func TestNavigationModeBypassesThrottle(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 5*time.Second, 50)
	partnerID := newTrackedPartner(t, svc, capability)
	svc.SetNavigationMode(partnerID, true)

	now := time.Now()
	report(t, svc, partnerID, 12.9700, 77.5900, now)
	report(t, svc, partnerID, 12.97001, 77.59001, now.Add(time.Second))

	sample, err := svc.Sample(context.Background(), partnerID)
	require.NoError(t, err)
	assert.True(t, sample.SampledAt.Equal(now.Add(time.Second)))
}

func TestStopIsIdempotentAndClearsSamples(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 25, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)
	report(t, svc, partnerID, 12.9700, 77.5900, time.Now())

	require.NoError(t, svc.Stop(context.Background(), partnerID))
	require.NoError(t, svc.Stop(context.Background(), partnerID), "second stop is a no-op")
	require.NoError(t, svc.Stop(context.Background(), uuid.New().String()), "stopping an unknown partner is a no-op")

	_, err := svc.Sample(context.Background(), partnerID)
	assert.ErrorIs(t, err, models.ErrNotTracking)

	err = svc.Report(context.Background(), partnerID, models.LocationReportRequest{
		Latitude:  12.98,
		Longitude: 77.60,
		SampledAt: time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrNotTracking)
}

func TestEstimateETAFallsBackToStraightLine(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 20, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)

	// Roughly 1.1km apart along a Bangalore street grid.
	report(t, svc, partnerID, 12.9700, 77.5900, time.Now())

	est, err := svc.EstimateETA(context.Background(), partnerID, 12.9800, 77.5900)
	require.NoError(t, err)
	assert.False(t, est.Routed)
	assert.InDelta(t, 1112, est.DistanceMeters, 20)
	// 1.1km at 20 km/h is about 200 seconds.
	assert.InDelta(t, 200, est.DurationSeconds, 10)
}

func TestEstimateETAPrefersRoutingService(t *testing.T) {
	capability := NewClientReportedCapability()
	routed := &models.ETAEstimate{DistanceMeters: 1850, DurationSeconds: 420, Routed: true, Polyline: "abc"}
	svc := NewService(newFakeSessionRepo(), capability, &fakeRoutingClient{est: routed}, 20, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)
	report(t, svc, partnerID, 12.9700, 77.5900, time.Now())

	est, err := svc.EstimateETA(context.Background(), partnerID, 12.9800, 77.5900)
	require.NoError(t, err)
	assert.True(t, est.Routed)
	assert.Equal(t, 1850, est.DistanceMeters)
	assert.Equal(t, "abc", est.Polyline)
}

func TestEstimateETARoutingFailureDegrades(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, &fakeRoutingClient{err: context.DeadlineExceeded}, 20, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)
	report(t, svc, partnerID, 12.9700, 77.5900, time.Now())

	est, err := svc.EstimateETA(context.Background(), partnerID, 12.9800, 77.5900)
	require.NoError(t, err)
	assert.False(t, est.Routed, "fallback estimates must be flagged as unrouted")
}

func TestEstimateETAWithoutSampleFails(t *testing.T) {
	capability := NewClientReportedCapability()
	svc := NewService(newFakeSessionRepo(), capability, nil, 20, 0, 0)
	partnerID := newTrackedPartner(t, svc, capability)

	_, err := svc.EstimateETA(context.Background(), partnerID, 12.98, 77.59)
	assert.ErrorIs(t, err, models.ErrNotTracking)
}
