// Snapshot endpoints.
//
//   - POST /snapshots                  (manual capture)
//   - GET  /snapshots                  (history, most recent first)
//   - POST /snapshots/{id}/restore     (replace live state with a snapshot)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/http/middleware"
)

// CreateSnapshotRequest is the JSON payload for POST /snapshots. Both fields
// are optional: the trigger defaults to a manual capture and the active map
// to the most recently updated record.
type CreateSnapshotRequest struct {
	Trigger     string `json:"trigger"`
	ActiveMapID string `json:"activeMapId"`
}

// CreateSnapshot handles POST /snapshots. An empty work state returns 204
// without touching the history.
func (h *Handlers) CreateSnapshot(c *gin.Context) {
	var req CreateSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}
	}
	if req.Trigger == "" {
		req.Trigger = domain.TriggerManual
	}

	snap, err := h.snaps.Create(c.Request.Context(), middleware.OwnerFrom(c), req.Trigger, req.ActiveMapID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if snap == nil {
		noContent(c)
		return
	}
	ok(c, http.StatusCreated, snap)
}

// ListSnapshots handles GET /snapshots.
func (h *Handlers) ListSnapshots(c *gin.Context) {
	snaps, err := h.snaps.List(c.Request.Context(), middleware.OwnerFrom(c))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"items": snaps})
}

// RestoreSnapshot handles POST /snapshots/{id}/restore.
func (h *Handlers) RestoreSnapshot(c *gin.Context) {
	if err := h.snaps.Restore(c.Request.Context(), middleware.OwnerFrom(c), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
