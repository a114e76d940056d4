package integration

import (
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncJobResponse represents a sync job in API responses
type SyncJobResponse struct {
	JobID          uuid.UUID                   `json:"job_id"`
	OrganizationID uuid.UUID                   `json:"organization_id"`
	SyncType       integration.SyncType        `json:"sync_type"`
	Status         integration.SyncStatus      `json:"status"`
	Progress       int                         `json:"progress"`
	CurrentStep    string                      `json:"current_step,omitempty"`
	ItemsProcessed int                         `json:"items_processed"`
	TotalItems     int                         `json:"total_items"`
	ErrorMessage   string                      `json:"error_message,omitempty"`
	ErrorReason    integration.SyncErrorReason `json:"error_reason,omitempty"`
	StartedAt      time.Time                   `json:"started_at"`
	FinishedAt     *time.Time                  `json:"finished_at,omitempty"`
	Report         *integration.SyncReport     `json:"report,omitempty"`
}

// StartSyncRequest represents a request to start a sync job
type StartSyncRequest struct {
	SyncType integration.SyncType `json:"sync_type" binding:"required,oneof=products variations full"`
}

// ToSyncJobResponse converts a job snapshot to a response
func ToSyncJobResponse(job integration.SyncJob) *SyncJobResponse {
	return &SyncJobResponse{
		JobID:          job.ID,
		OrganizationID: job.OrganizationID,
		SyncType:       job.SyncType,
		Status:         job.Status,
		Progress:       job.Progress,
		CurrentStep:    job.CurrentStep,
		ItemsProcessed: job.ItemsProcessed,
		TotalItems:     job.TotalItems,
		ErrorMessage:   job.ErrorMessage,
		ErrorReason:    job.ErrorReason,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
		Report:         job.Report,
	}
}
