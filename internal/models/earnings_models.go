package models

import "time"

// DateRange bounds a read-side query. Zero values mean unbounded.
type DateRange struct {
	From time.Time `json:"from" query:"from"`
	To   time.Time `json:"to" query:"to"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// EarningsSummary is the partner-facing projection over completed deliveries
// and the COD ledger for a date range. Amounts are minor currency units.
type EarningsSummary struct {
	PartnerID      string     `json:"partner_id"`
	Range          DateRange  `json:"range"`
	Completed      int        `json:"completed"`
	Cancelled      int        `json:"cancelled"`
	TotalEarnings  int64      `json:"total_earnings"`
	CODOutstanding int64      `json:"cod_outstanding"`
	CODSubmitted   int64      `json:"cod_submitted"`
	COD            CODSummary `json:"cod"`
}
