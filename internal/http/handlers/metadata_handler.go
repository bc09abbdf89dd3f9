// Catalog endpoints backed by the external library APIs.
//
//   - GET /maps/{id}/metadata   (IIIF manifest, localized title and fields)
//   - GET /maps/{id}/tiles      (tile layer status for a georeferenced map)
//
// Both are read-through proxies; nothing is stored locally.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/paristimemachine/galligeo/internal/gateway"
)

// MetadataService resolves a map's descriptive metadata from the digital
// library's IIIF presentation API.
type MetadataService interface {
	Manifest(ctx context.Context, ark string, prefer language.Tag) (*gateway.MapMetadata, error)
}

// TileService reports whether a georeferenced map's tile layer is ready and
// what it covers.
type TileService interface {
	Status(ctx context.Context, mapID string) (*gateway.TileStatus, error)
}

// MapMetadata handles GET /maps/{id}/metadata. ?lang selects the preferred
// label language; the manifest's own languages decide what actually comes
// back.
func (h *Handlers) MapMetadata(c *gin.Context) {
	prefer := language.French
	if lang := c.Query("lang"); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown language tag")
			return
		}
		prefer = tag
	}

	md, err := h.iiif.Manifest(c.Request.Context(), c.Param("id"), prefer)
	if err != nil {
		failFromGateway(c, err)
		return
	}
	ok(c, http.StatusOK, md)
}

// TileStatus handles GET /maps/{id}/tiles.
func (h *Handlers) TileStatus(c *gin.Context) {
	st, err := h.tiles.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromGateway(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// failFromGateway maps outbound-call failures onto the envelope.
func failFromGateway(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "the library does not know this map")
	case errors.Is(err, gateway.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "the library rejected the credential")
	case errors.Is(err, gateway.ErrRemoteUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeServerBusy, "the library is unreachable, try again later")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
