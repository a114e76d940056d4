package integration

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncType selects what a sync job pulls
type SyncType string

const (
	// SyncTypeProducts pulls product pages only
	SyncTypeProducts SyncType = "products"
	// SyncTypeVariations pulls variations of the variable products already mirrored
	SyncTypeVariations SyncType = "variations"
	// SyncTypeFull pulls products, then the variations of every variable product seen
	SyncTypeFull SyncType = "full"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeProducts, SyncTypeVariations, SyncTypeFull:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncType
func (t SyncType) String() string {
	return string(t)
}

// SyncStatus is the state of a sync job
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
)

// IsTerminal returns true for success and error
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSuccess || s == SyncStatusError
}

// SyncErrorReason distinguishes why a job ended in error
type SyncErrorReason string

const (
	SyncErrorReasonCancelled SyncErrorReason = "cancelled"
	SyncErrorReasonProvider  SyncErrorReason = "provider"
	SyncErrorReasonInternal  SyncErrorReason = "internal"
)

// ProgressUpdate is reported by the driving loop after each page
type ProgressUpdate struct {
	Progress       int
	CurrentStep    string
	ItemsProcessed int
	TotalItems     int
}

// SyncReport is the outcome of a sync run, kept with the job for review
type SyncReport struct {
	ProductsUpserted   int                              `json:"products_upserted"`
	VariationsUpserted int                              `json:"variations_upserted"`
	Unchanged          int                              `json:"unchanged"`
	Reconciled         int                              `json:"reconciled"`
	Skipped            []catalog.RecordFailure          `json:"skipped"`
	Conflicts          []catalog.ReconciliationConflict `json:"conflicts"`
}

// SyncJob is one synchronization run. Only the sync controller mutates it;
// observers receive copies from Snapshot.
type SyncJob struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	SyncType       SyncType
	Status         SyncStatus
	Progress       int
	CurrentStep    string
	ItemsProcessed int
	TotalItems     int
	ErrorMessage   string
	ErrorReason    SyncErrorReason
	StartedAt      time.Time
	FinishedAt     *time.Time
	Report         *SyncReport
}

// NewSyncJob creates an idle job
func NewSyncJob(organizationID uuid.UUID, syncType SyncType) (*SyncJob, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidScope, "organization_id is required")
	}
	if !syncType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "unknown sync type "+string(syncType))
	}
	return &SyncJob{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		SyncType:       syncType,
		Status:         SyncStatusIdle,
	}, nil
}

// Start moves an idle job to syncing
func (j *SyncJob) Start(now time.Time) error {
	if j.Status != SyncStatusIdle {
		return shared.NewDomainError(shared.CodeInvalidState, "only an idle job can be started")
	}
	j.Status = SyncStatusSyncing
	j.StartedAt = now
	j.CurrentStep = "starting"
	return nil
}

// ApplyProgress records a progress update. Progress and items processed never
// move backwards: regressions are clamped to the previous value and returned
// as the names of the clamped fields.
func (j *SyncJob) ApplyProgress(u ProgressUpdate) ([]string, error) {
	if j.Status != SyncStatusSyncing {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "progress can only be reported while syncing")
	}
	var clamped []string

	progress := min(max(u.Progress, 0), 100)
	if progress < j.Progress {
		clamped = append(clamped, "progress")
		progress = j.Progress
	}
	items := max(u.ItemsProcessed, 0)
	if items < j.ItemsProcessed {
		clamped = append(clamped, "items_processed")
		items = j.ItemsProcessed
	}

	j.Progress = progress
	j.ItemsProcessed = items
	if u.TotalItems > 0 {
		j.TotalItems = u.TotalItems
	}
	if u.CurrentStep != "" {
		j.CurrentStep = u.CurrentStep
	}
	return clamped, nil
}

// Complete ends the job. Success forces progress to 100; failure keeps the last
// reported progress so observers can show where it stalled.
func (j *SyncJob) Complete(success bool, errorMessage string, now time.Time) error {
	if j.Status != SyncStatusSyncing {
		return shared.NewDomainError(shared.CodeInvalidState, "only a syncing job can be completed")
	}
	if !success {
		return j.Fail(SyncErrorReasonInternal, errorMessage, now)
	}
	j.Status = SyncStatusSuccess
	j.Progress = 100
	j.CurrentStep = "completed"
	j.ErrorMessage = ""
	j.ErrorReason = ""
	j.FinishedAt = &now
	return nil
}

// Fail ends the job in error with the given reason
func (j *SyncJob) Fail(reason SyncErrorReason, errorMessage string, now time.Time) error {
	if j.Status != SyncStatusSyncing {
		return shared.NewDomainError(shared.CodeInvalidState, "only a syncing job can fail")
	}
	if errorMessage == "" {
		errorMessage = "sync failed"
	}
	j.Status = SyncStatusError
	j.ErrorReason = reason
	j.ErrorMessage = errorMessage
	j.FinishedAt = &now
	return nil
}

// Cancel ends a syncing job in error with the cancelled reason
func (j *SyncJob) Cancel(now time.Time) error {
	if j.Status != SyncStatusSyncing {
		return shared.NewDomainError(shared.CodeInvalidState, "only a syncing job can be cancelled")
	}
	return j.Fail(SyncErrorReasonCancelled, "sync cancelled", now)
}

// IsCancelled reports whether the job was cancelled
func (j *SyncJob) IsCancelled() bool {
	return j.Status == SyncStatusError && j.ErrorReason == SyncErrorReasonCancelled
}

// Snapshot returns a deep copy safe to hand to observers
func (j *SyncJob) Snapshot() SyncJob {
	cp := *j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	if j.Report != nil {
		r := *j.Report
		r.Skipped = append([]catalog.RecordFailure(nil), j.Report.Skipped...)
		r.Conflicts = append([]catalog.ReconciliationConflict(nil), j.Report.Conflicts...)
		cp.Report = &r
	}
	return cp
}
