package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-delivery/internal/metrics"
	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/geo"
)

// DeviceCapabilityInterface is the platform's location capability. Start
// consults it and degrades to not-tracking when permission is unavailable;
// delivery progress is never blocked by it.
type DeviceCapabilityInterface interface {
	PermissionGranted(ctx context.Context, partnerID string) (bool, error)
}

// ClientReportedCapability trusts the permission state the partner's device
// reported at session start. It is the production stand-in for a direct OS
// integration, which lives on the device, not the backend.
type ClientReportedCapability struct {
	mu      sync.RWMutex
	granted map[string]bool
}

// NewClientReportedCapability creates an empty capability registry.
func NewClientReportedCapability() *ClientReportedCapability {
	return &ClientReportedCapability{granted: make(map[string]bool)}
}

// SetGranted records the device-reported permission state for a partner.
func (c *ClientReportedCapability) SetGranted(partnerID string, granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted[partnerID] = granted
}

// PermissionGranted implements DeviceCapabilityInterface.
func (c *ClientReportedCapability) PermissionGranted(_ context.Context, partnerID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.granted[partnerID], nil
}

// ServiceInterface defines the contract for the location tracker.
type ServiceInterface interface {
	Start(ctx context.Context, partnerID string) error
	Stop(ctx context.Context, partnerID string) error
	Report(ctx context.Context, partnerID string, req models.LocationReportRequest) error
	Sample(ctx context.Context, partnerID string) (*models.PartnerLocationSample, error)
	EstimateETA(ctx context.Context, partnerID string, destLat, destLng float64) (*models.ETAEstimate, error)
	SetNavigationMode(partnerID string, active bool)
}

// Service keeps the most recent position per tracked partner. Only the latest
// sample is meaningful: samples are accepted last-writer-wins by their
// sampledAt timestamp, not by arrival order, so network reordering cannot
// roll a partner's position backwards. Nothing here gates a delivery
// transition.
type Service struct {
	repo    SessionRepositoryInterface
	device  DeviceCapabilityInterface
	routing RoutingClientInterface

	mu         sync.RWMutex
	latest     map[string]models.PartnerLocationSample
	navigation map[string]bool

	fallbackSpeedKmph float64
	minInterval       time.Duration
	minDistanceM      float64
}

// NewService creates a new tracking service. routing may be nil, in which
// case every estimate uses the straight-line fallback.
func NewService(repo SessionRepositoryInterface, device DeviceCapabilityInterface, routing RoutingClientInterface, fallbackSpeedKmph float64, minInterval time.Duration, minDistanceM float64) *Service {
	if fallbackSpeedKmph <= 0 {
		fallbackSpeedKmph = 25
	}
	return &Service{
		repo:              repo,
		device:            device,
		routing:           routing,
		latest:            make(map[string]models.PartnerLocationSample),
		navigation:        make(map[string]bool),
		fallbackSpeedKmph: fallbackSpeedKmph,
		minInterval:       minInterval,
		minDistanceM:      minDistanceM,
	}
}

// Start begins tracking a partner. Fails with ErrPermissionDenied when the
// device location capability is unavailable.
func (s *Service) Start(ctx context.Context, partnerID string) error {
	granted, err := s.device.PermissionGranted(ctx, partnerID)
	if err != nil {
		return fmt.Errorf("service.Start capability: %w", err)
	}
	if !granted {
		return models.ErrPermissionDenied
	}
	if err := s.repo.StartSession(ctx, partnerID); err != nil {
		return fmt.Errorf("service.Start: %w", err)
	}
	return nil
}

// Stop ends tracking. Stopping an already-stopped (or never-started) partner
// is a no-op success, so it is safe to call at any point.
func (s *Service) Stop(ctx context.Context, partnerID string) error {
	if err := s.repo.StopSession(ctx, partnerID); err != nil {
		return fmt.Errorf("service.Stop: %w", err)
	}
	s.mu.Lock()
	delete(s.latest, partnerID)
	delete(s.navigation, partnerID)
	s.mu.Unlock()
	return nil
}

// Report accepts a new position sample. Out-of-order samples are dropped in
// favor of the newest already held; in-order samples inside both the minimum
// interval and minimum displacement are throttled unless the partner is in
// active navigation.
func (s *Service) Report(ctx context.Context, partnerID string, req models.LocationReportRequest) error {
	session, err := s.repo.FindSession(ctx, partnerID)
	if err != nil || !session.Active {
		return models.ErrNotTracking
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, held := s.latest[partnerID]
	if held && !req.SampledAt.After(prev.SampledAt) {
		metrics.LocationSamplesDroppedTotal.WithLabelValues("out_of_order").Inc()
		return nil
	}
	if held && !s.navigation[partnerID] {
		tooSoon := req.SampledAt.Sub(prev.SampledAt) < s.minInterval
		tooClose := geo.HaversineMeters(prev.Latitude, prev.Longitude, req.Latitude, req.Longitude) < s.minDistanceM
		if tooSoon && tooClose {
			metrics.LocationSamplesDroppedTotal.WithLabelValues("throttled").Inc()
			return nil
		}
	}

	s.latest[partnerID] = models.PartnerLocationSample{
		PartnerID: partnerID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Heading:   req.Heading,
		SampledAt: req.SampledAt,
	}
	metrics.LocationSamplesTotal.Inc()
	return nil
}

// Sample returns the partner's latest position, or ErrNotTracking when no
// sample is held.
func (s *Service) Sample(_ context.Context, partnerID string) (*models.PartnerLocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.latest[partnerID]
	if !ok {
		return nil, models.ErrNotTracking
	}
	return &sample, nil
}

// EstimateETA estimates distance and duration from the partner's latest
// position to the destination. When the routing service fails, it falls back
// to great-circle distance at a fixed average speed, flagged Routed=false so
// callers never conflate the accuracy levels.
func (s *Service) EstimateETA(ctx context.Context, partnerID string, destLat, destLng float64) (*models.ETAEstimate, error) {
	sample, err := s.Sample(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	if s.routing != nil {
		if est, err := s.routing.GetRoute(ctx, sample.Latitude, sample.Longitude, destLat, destLng); err == nil {
			return est, nil
		}
	}

	distance := geo.HaversineMeters(sample.Latitude, sample.Longitude, destLat, destLng)
	return &models.ETAEstimate{
		DistanceMeters:  int(distance),
		DurationSeconds: geo.TravelSeconds(distance, s.fallbackSpeedKmph),
		Routed:          false,
	}, nil
}

// SetNavigationMode toggles the high-frequency sampling hint for a partner.
// Called by the delivery state machine on entry to and exit from the active
// navigation phase; purely advisory.
func (s *Service) SetNavigationMode(partnerID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.navigation[partnerID] = true
	} else {
		delete(s.navigation, partnerID)
	}
}
