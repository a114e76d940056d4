package handler

import (
	"context"
	"net/http"

	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/interfaces/http/dto"
	"github.com/catalogmirror/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncJobs starts, cancels and reports catalog sync jobs
type SyncJobs interface {
	StartSync(ctx context.Context, organizationID uuid.UUID, syncType integration.SyncType) (*appintegration.SyncJobResponse, error)
	CancelSync(ctx context.Context, organizationID, jobID uuid.UUID) (*appintegration.SyncJobResponse, error)
	GetJob(ctx context.Context, organizationID, jobID uuid.UUID) (*appintegration.SyncJobResponse, error)
	ListJobs(ctx context.Context, organizationID uuid.UUID, syncType *integration.SyncType, page shared.Pagination) (shared.Paginated[appintegration.SyncJobResponse], error)
}

// SyncHandler exposes the sync job controller
type SyncHandler struct {
	BaseHandler
	jobs SyncJobs
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(jobs SyncJobs) *SyncHandler {
	return &SyncHandler{jobs: jobs}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/catalog/sync")
	group.POST("", h.Start)
	group.GET("/jobs", h.List)
	group.GET("/jobs/:id", h.Get)
	group.POST("/jobs/:id/cancel", h.Cancel)
}

// Start launches a sync job and answers 202 with the job snapshot
func (h *SyncHandler) Start(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	var req appintegration.StartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	job, err := h.jobs.StartSync(c.Request.Context(), org, req.SyncType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, job)
}

// Cancel requests cooperative cancellation of a syncing job
func (h *SyncHandler) Cancel(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.CancelSync(c.Request.Context(), org, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// Get returns one job
func (h *SyncHandler) Get(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), org, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// ListJobsQuery filters the job history
type ListJobsQuery struct {
	PageQuery
	SyncType string `form:"sync_type" binding:"omitempty,oneof=products variations full"`
}

// List returns running jobs followed by archived ones
func (h *SyncHandler) List(c *gin.Context) {
	org, ok := h.organization(c)
	if !ok {
		return
	}
	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var syncType *integration.SyncType
	if q.SyncType != "" {
		st := integration.SyncType(q.SyncType)
		syncType = &st
	}
	page, err := h.jobs.ListJobs(c.Request.Context(), org, syncType, q.Pagination())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}
