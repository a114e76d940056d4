package catalog

import "time"

// RecordFailure reports one record skipped during an upsert, or one problem
// found inside an otherwise accepted record (Warning set).
type RecordFailure struct {
	Kind     string `json:"kind"`
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Reason   string `json:"reason"`
	Warning  bool   `json:"warning,omitempty"`
}

// Record kinds
const (
	RecordKindProduct   = "product"
	RecordKindVariation = "variation"
)

// UpsertResult summarizes one page upsert
type UpsertResult struct {
	// Upserted counts records inserted or overwritten
	Upserted int
	// Unchanged counts records that were identical or older than the stored copy
	Unchanged int
	Failures  []RecordFailure
	// Touched lists records whose external values are now the mirror's baseline
	Touched []TouchedStock
}

// Count is the number of records accepted by the store
func (r *UpsertResult) Count() int {
	return r.Upserted + r.Unchanged
}

// Skipped returns the failures that caused a record to be dropped
func (r *UpsertResult) Skipped() []RecordFailure {
	var out []RecordFailure
	for _, f := range r.Failures {
		if !f.Warning {
			out = append(out, f)
		}
	}
	return out
}

// TouchedStock is the externally reported stock of a record written by a sync,
// with the external snapshot time it was taken at.
type TouchedStock struct {
	Target        StockTarget
	ExternalStock int64
	SnapshotTime  time.Time
}

// ReconciliationConflict reports a record whose ledger adjustments could not be
// applied on top of the external stock without going below zero.
type ReconciliationConflict struct {
	ProductID     int64  `json:"product_id"`
	VariationID   *int64 `json:"variation_id,omitempty"`
	ExternalStock int64  `json:"external_stock"`
	Attempted     int64  `json:"attempted"`
	Written       int64  `json:"written"`
}
