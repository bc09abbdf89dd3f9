// Georeferencing submission endpoint.
//
//   - POST /maps/{id}/georeference
//
// The compute job behind this call runs for minutes, so two things differ
// from the other endpoints: an Idempotency-Key header makes retries replay
// the stored outcome instead of re-submitting, and gateway failures map to
// distinct user-facing messages so the client can tell "sign in first" from
// "try again later" from "still running".
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/gateway"
	"github.com/paristimemachine/galligeo/internal/http/middleware"
	"github.com/paristimemachine/galligeo/internal/services"
)

// HeaderIdempotencyKey names the replay key header for submissions.
const HeaderIdempotencyKey = "Idempotency-Key"

// GeoreferenceRequest is the JSON payload for POST /maps/{id}/georeference.
// The control points and clipping polygon come from the stored record; the
// request only carries what the store does not know.
type GeoreferenceRequest struct {
	ARKURL      string `json:"arkUrl" binding:"required"`
	ImageWidth  int    `json:"imageWidth" binding:"required,min=1"`
	ImageHeight int    `json:"imageHeight" binding:"required,min=1"`
}

// GeoreferenceResponse is the success payload.
type GeoreferenceResponse struct {
	TilesURL string `json:"tiles_url"`
	Replayed bool   `json:"replayed"`
}

// Georeference handles POST /maps/{id}/georeference.
func (h *Handlers) Georeference(c *gin.Context) {
	var req GeoreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	owner := middleware.OwnerFrom(c)
	key := c.GetHeader(HeaderIdempotencyKey)
	tilesURL, replayed, err := h.georef.Submit(c.Request.Context(), owner, c.Param("id"), key, services.SubmitInput{
		ARKURL:      req.ARKURL,
		ImageWidth:  req.ImageWidth,
		ImageHeight: req.ImageHeight,
	})
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeNotSignedIn,
				"you are not signed in; sign in and submit again")
		case errors.Is(err, gateway.ErrSubmitTimeout):
			fail(c, http.StatusGatewayTimeout, ErrCodeSubmitTimeout,
				"the georeferencing job timed out; it may still finish, check back later")
		case errors.Is(err, gateway.ErrRemoteUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeServerBusy,
				"the georeferencing server is busy; your work is saved locally, try again later")
		default:
			failFromService(c, err)
		}
		return
	}

	status := http.StatusAccepted
	if replayed {
		status = http.StatusOK
	}
	ok(c, status, GeoreferenceResponse{TilesURL: tilesURL, Replayed: replayed})
}
