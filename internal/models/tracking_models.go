package models

import (
	"database/sql"
	"time"
)

// PartnerLocationSample is the most recent reported position of a partner.
// Only the latest sample per partner is meaningful; older samples are dropped.
type PartnerLocationSample struct {
	PartnerID string    `json:"partner_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading"`
	SampledAt time.Time `json:"sampled_at"`
}

// LocationReportRequest contains the data a partner device sends when it
// reports a new position sample. The coordinate fields carry range tags only:
// zero is a legal latitude (equator) and longitude (prime meridian).
type LocationReportRequest struct {
	Latitude  float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Heading   float64   `json:"heading" validate:"gte=0,lt=360"`
	SampledAt time.Time `json:"sampled_at" validate:"required"`
}

// TrackingSession is the per-partner session object behind Start/Stop. Keyed
// by partner id so sessions for different partners never collide.
type TrackingSession struct {
	PartnerID string       `json:"partner_id"`
	StartedAt time.Time    `json:"started_at"`
	StoppedAt sql.NullTime `json:"stopped_at,omitempty"`
	Active    bool         `json:"active"`
}

// ETAEstimate is a distance/duration estimate between two points. Routed is
// false when the routing service was unreachable and the figures come from the
// straight-line fallback; callers must not treat the two accuracy levels alike.
type ETAEstimate struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Routed          bool   `json:"routed"`
	Polyline        string `json:"polyline,omitempty"`
}
