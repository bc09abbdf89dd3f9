// Map work-record endpoints.
//
//   - PUT    /maps/{id}        (save or merge the owner's work on a map)
//   - GET    /maps             (list, paginated)
//   - GET    /maps/{id}        (fetch one record)
//   - DELETE /maps/{id}        (forget a map)
//
// Handlers stay transport-thin: validate, call the service, map sentinel
// errors onto the envelope.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/domain"
	"github.com/paristimemachine/galligeo/internal/http/middleware"
	"github.com/paristimemachine/galligeo/internal/services"
	"github.com/paristimemachine/galligeo/internal/utils"
)

// SyncService is the read/write path for work records: writes land locally
// and propagate to the remote store in the background; reads pick the
// authoritative source by session state.
type SyncService interface {
	Save(ctx context.Context, owner, mapID string, status domain.Status, patch services.RecordPatch) (*domain.WorkRecord, error)
	Load(ctx context.Context, owner string) ([]domain.WorkRecord, error)
}

// StoreService covers the purely local operations the sync layer does not
// mediate.
type StoreService interface {
	Get(ctx context.Context, owner, mapID string) (*domain.WorkRecord, error)
	ListPage(ctx context.Context, owner string, page, pageSize int) ([]domain.WorkRecord, int64, error)
	Remove(ctx context.Context, owner, mapID string) error
}

// SnapshotService manages the owner's snapshot history.
type SnapshotService interface {
	Create(ctx context.Context, owner, trigger, activeMapID string) (*domain.Snapshot, error)
	List(ctx context.Context, owner string) ([]domain.Snapshot, error)
	Restore(ctx context.Context, owner, snapshotID string) error
}

// SettingsService reads and writes the owner's validated settings document.
type SettingsService interface {
	Get(ctx context.Context, owner string) (map[string]any, error)
	Put(ctx context.Context, owner string, values map[string]any) error
}

// GeorefService submits a record to the compute API.
type GeorefService interface {
	Submit(ctx context.Context, owner, mapID, key string, in services.SubmitInput) (tilesURL string, replayed bool, err error)
}

// Handlers groups the HTTP endpoints and their service dependencies.
type Handlers struct {
	sync     SyncService
	store    StoreService
	snaps    SnapshotService
	settings SettingsService
	georef   GeorefService
	iiif     MetadataService
	tiles    TileService
}

// New constructs a Handlers bound to the given services.
func New(sync SyncService, store StoreService, snaps SnapshotService, settings SettingsService, georef GeorefService, iiif MetadataService, tiles TileService) *Handlers {
	return &Handlers{sync: sync, store: store, snaps: snaps, settings: settings, georef: georef, iiif: iiif, tiles: tiles}
}

// SaveMapRequest is the JSON payload for PUT /maps/{id}. Absent fields leave
// the stored values untouched; the status is the only mandatory field.
type SaveMapRequest struct {
	Status        string                     `json:"status" binding:"required"`
	Quality       *int                       `json:"quality"`
	ControlPoints *[]domain.ControlPointPair `json:"controlPoints"`
	Clipping      *[]domain.GeoPoint         `json:"clipping"`
	Extra         map[string]any             `json:"extra"`
}

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// MapListResponse is the paginated body of GET /maps.
type MapListResponse struct {
	Items      []domain.WorkRecord `json:"items"`
	Pagination Pagination          `json:"pagination"`
}

// SaveMap handles PUT /maps/{id}.
func (h *Handlers) SaveMap(c *gin.Context) {
	var req SaveMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	owner := middleware.OwnerFrom(c)
	mapID := c.Param("id")
	rec, err := h.sync.Save(c.Request.Context(), owner, mapID, domain.Status(req.Status), services.RecordPatch{
		Quality:       req.Quality,
		ControlPoints: req.ControlPoints,
		Clipping:      req.Clipping,
		Extra:         req.Extra,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// GetMap handles GET /maps/{id}.
func (h *Handlers) GetMap(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), middleware.OwnerFrom(c), c.Param("id"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, rec)
}

// ListMaps handles GET /maps. When the sync layer serves an authenticated
// owner the result reflects the remote store; otherwise it is the local view.
// ?page and ?page_size control pagination; the full set is loaded through
// the sync path first so the local cache is warm before slicing.
func (h *Handlers) ListMaps(c *gin.Context) {
	owner := middleware.OwnerFrom(c)
	page, pageSize := utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), 20),
		20, 100,
	)

	if _, err := h.sync.Load(c.Request.Context(), owner); err != nil {
		failFromService(c, err)
		return
	}
	items, total, err := h.store.ListPage(c.Request.Context(), owner, page, pageSize)
	if err != nil {
		failFromService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, MapListResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// DeleteMap handles DELETE /maps/{id}. Deleting an unknown map succeeds.
func (h *Handlers) DeleteMap(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), middleware.OwnerFrom(c), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// failFromService maps service sentinel errors onto HTTP responses. Unknown
// errors become opaque 500s; their detail stays in the logs.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidOwner),
		errors.Is(err, services.ErrInvalidMapID),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidQuality),
		errors.Is(err, services.ErrDuplicatePointID),
		errors.Is(err, services.ErrUnknownTrigger):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no work recorded for this map")
	case errors.Is(err, services.ErrSnapshotNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "snapshot not found")
	case errors.Is(err, services.ErrSnapshotInvalid):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidSnapshot, "snapshot payload is invalid; nothing was restored")
	case errors.Is(err, services.ErrSettingsInvalid):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidSettings, err.Error())
	case errors.Is(err, services.ErrNotEnoughPoints):
		fail(c, http.StatusUnprocessableEntity, ErrCodeNotEnoughPoints, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
