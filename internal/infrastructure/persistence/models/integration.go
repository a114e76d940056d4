package models

import (
	"encoding/json"
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// SyncJobModel is the persistence model for an archived sync job
type SyncJobModel struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID                   `gorm:"type:uuid;not null;index:idx_sync_jobs_org_started,priority:1"`
	SyncType       integration.SyncType        `gorm:"type:varchar(20);not null"`
	Status         integration.SyncStatus      `gorm:"type:varchar(20);not null"`
	Progress       int                         `gorm:"not null;default:0"`
	CurrentStep    string                      `gorm:"type:varchar(255)"`
	ItemsProcessed int                         `gorm:"not null;default:0"`
	TotalItems     int                         `gorm:"not null;default:0"`
	ErrorMessage   string                      `gorm:"type:text"`
	ErrorReason    integration.SyncErrorReason `gorm:"type:varchar(20)"`
	StartedAt      time.Time                   `gorm:"not null;index:idx_sync_jobs_org_started,priority:2"`
	FinishedAt     *time.Time
	ReportJSON     *string `gorm:"column:report;type:jsonb"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *integration.SyncJob {
	job := &integration.SyncJob{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		SyncType:       m.SyncType,
		Status:         m.Status,
		Progress:       m.Progress,
		CurrentStep:    m.CurrentStep,
		ItemsProcessed: m.ItemsProcessed,
		TotalItems:     m.TotalItems,
		ErrorMessage:   m.ErrorMessage,
		ErrorReason:    m.ErrorReason,
		StartedAt:      m.StartedAt.UTC(),
	}
	if m.FinishedAt != nil {
		t := m.FinishedAt.UTC()
		job.FinishedAt = &t
	}
	if m.ReportJSON != nil {
		var report integration.SyncReport
		if err := json.Unmarshal([]byte(*m.ReportJSON), &report); err == nil {
			job.Report = &report
		}
	}
	return job
}

// SyncJobModelFromDomain creates a persistence model from a domain SyncJob
func SyncJobModelFromDomain(j *integration.SyncJob) *SyncJobModel {
	m := &SyncJobModel{
		ID:             j.ID,
		OrganizationID: j.OrganizationID,
		SyncType:       j.SyncType,
		Status:         j.Status,
		Progress:       j.Progress,
		CurrentStep:    j.CurrentStep,
		ItemsProcessed: j.ItemsProcessed,
		TotalItems:     j.TotalItems,
		ErrorMessage:   j.ErrorMessage,
		ErrorReason:    j.ErrorReason,
		StartedAt:      j.StartedAt.UTC(),
		FinishedAt:     j.FinishedAt,
	}
	if j.Report != nil {
		if b, err := json.Marshal(j.Report); err == nil {
			report := string(b)
			m.ReportJSON = &report
		}
	}
	return m
}
