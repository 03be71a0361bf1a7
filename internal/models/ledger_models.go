package models

import "time"

// CODCollectionEvent records cash received by a partner at the door. Created
// exactly once per order, immutable thereafter. Amounts are minor currency
// units (paise).
type CODCollectionEvent struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	DeliveryID  string    `json:"delivery_id"`
	CollectedBy string    `json:"collected_by"`
	Amount      int64     `json:"amount"`
	CollectedAt time.Time `json:"collected_at"`
}

// CODSettlementEvent records previously collected cash being remitted to the
// platform. Immutable. OrderIDs lists the collections the partner is settling
// against, for the audit trail; the balance check itself is by amount.
type CODSettlementEvent struct {
	ID          string    `json:"id"`
	PartnerID   string    `json:"partner_id"`
	Amount      int64     `json:"amount"`
	OrderIDs    []string  `json:"order_ids,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CODSummary is the read-only aggregate over a partner's ledger events within
// a date range. Every figure is folded from the event log on demand; there is
// no stored balance to drift from it.
type CODSummary struct {
	TotalCollected        int64                `json:"total_collected"`
	TotalSubmitted        int64                `json:"total_submitted"`
	CollectedNotSubmitted int64                `json:"collected_not_submitted"`
	PendingCollections    []CODCollectionEvent `json:"pending_collections"`
}

// RecordCollectionRequest is submitted when a partner confirms cash receipt.
type RecordCollectionRequest struct {
	OrderID    string `json:"order_id" validate:"required"`
	DeliveryID string `json:"delivery_id" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

// RecordSettlementRequest is submitted when a partner remits collected cash.
type RecordSettlementRequest struct {
	Amount   int64    `json:"amount" validate:"required,gt=0"`
	OrderIDs []string `json:"order_ids,omitempty"`
}
