package models

import (
	"database/sql"
	"time"
)

// DeliveryStatus is the lifecycle state of a delivery.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusAccepted  DeliveryStatus = "accepted"
	StatusPickedUp  DeliveryStatus = "picked_up"
	StatusOnTheWay  DeliveryStatus = "on_the_way"
	StatusDelivered DeliveryStatus = "delivered"
	StatusCancelled DeliveryStatus = "cancelled"
)

// IsTerminal reports whether no further transition is legal from s.
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPickedUp, StatusOnTheWay, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Delivery represents a single delivery assignment for an order.
// Pickup and dropoff addresses are snapshots taken at assignment time and are
// never re-derived from the order afterwards.
type Delivery struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"order_id"`
	PartnerID       sql.NullString `json:"partner_id,omitempty"`
	Status          DeliveryStatus `json:"status"`
	PickupAddress   string         `json:"pickup_address"`
	DeliveryAddress string         `json:"delivery_address"`
	DeliveryFee     int64          `json:"delivery_fee"` // minor currency units (paise)
	RejectReason    sql.NullString `json:"reject_reason,omitempty"`
	AcceptedAt      sql.NullTime   `json:"accepted_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	StatusHistory []StatusChange `json:"status_history,omitempty"`
}

// StatusChange is one append-only entry in a delivery's status history.
// The idempotency key of the request that produced the entry is recorded so
// that a replay of the same request can be detected after a restart.
type StatusChange struct {
	Status         DeliveryStatus `json:"status"`
	IdempotencyKey string         `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CreateDeliveryRequest is submitted by the dispatch collaborator when it
// binds an order to a partner.
type CreateDeliveryRequest struct {
	OrderID         string `json:"order_id" validate:"required"`
	PartnerID       string `json:"partner_id" validate:"required"`
	PickupAddress   string `json:"pickup_address" validate:"required"`
	DeliveryAddress string `json:"delivery_address" validate:"required"`
	DeliveryFee     int64  `json:"delivery_fee" validate:"gte=0"`
}

// TransitionRequest asks the state machine to move a delivery to a target
// status. Replaying the same (delivery, target, key) triple is a no-op success.
type TransitionRequest struct {
	TargetStatus   DeliveryStatus `json:"target_status" validate:"required"`
	IdempotencyKey string         `json:"idempotency_key" validate:"required"`
}

// TransitionResponse reports the status after a transition request, whether it
// was applied by this call or replayed.
type TransitionResponse struct {
	DeliveryID string         `json:"delivery_id"`
	Status     DeliveryStatus `json:"status"`
	Replayed   bool           `json:"replayed"`
}

// RejectRequest cancels a pending or accepted delivery. Reason is mandatory
// once the delivery has been accepted.
type RejectRequest struct {
	Reason         string `json:"reason,omitempty"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
}
