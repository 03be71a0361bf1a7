package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidTransition is returned when a delivery status change does not
	// follow a legal edge of the lifecycle graph (e.g. 'pending' straight to
	// 'delivered'). The delivery is left untouched.
	ErrInvalidTransition = errors.New("illegal delivery status transition")

	// ErrCollectionRequired is returned when a COD delivery is asked to move to
	// 'delivered' before the full order amount has been recorded as collected.
	// It is a retryable precondition failure: record the collection, then retry
	// the same transition with the same idempotency key.
	ErrCollectionRequired = errors.New("cash collection required before completing delivery")

	// ErrRejectReasonRequired is returned when an accepted delivery is rejected
	// without a reason.
	ErrRejectReasonRequired = errors.New("a reason is required to reject an accepted delivery")

	// ErrDuplicateCollection is returned when a collection event already exists
	// for the order. The existing event is never altered.
	ErrDuplicateCollection = errors.New("a cash collection has already been recorded for this order")

	// ErrOversettlement is returned when a settlement would exceed the
	// partner's outstanding (collected minus settled) balance.
	ErrOversettlement = errors.New("settlement amount exceeds outstanding balance")

	// ErrTimeout is returned when a transition or ledger write did not complete
	// within the operation timeout. Safe to retry with the same idempotency key.
	ErrTimeout = errors.New("operation timed out")

	// ErrPermissionDenied is returned when the device location capability is
	// unavailable for a partner. Tracking degrades to not-tracking; delivery
	// progress is unaffected.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrNotTracking is returned when a location is requested for a partner
	// with no active tracking session.
	ErrNotTracking = errors.New("partner is not being tracked")
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}
