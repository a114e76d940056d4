package integration

import (
	"context"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncJobArchive stores finished jobs. Running jobs live only in the controller.
type SyncJobArchive interface {
	Save(ctx context.Context, job *SyncJob) error
	FindByID(ctx context.Context, organizationID, jobID uuid.UUID) (*SyncJob, error)
	// List returns archived jobs most recent first
	List(ctx context.Context, organizationID uuid.UUID, syncType *SyncType, page shared.Pagination) ([]SyncJob, int64, error)
}
