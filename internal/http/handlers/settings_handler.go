// Settings endpoints.
//
//   - GET /settings   (the owner's settings document, empty object when unset)
//   - PUT /settings   (replace the document after schema validation)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/http/middleware"
)

// GetSettings handles GET /settings.
func (h *Handlers) GetSettings(c *gin.Context) {
	values, err := h.settings.Get(c.Request.Context(), middleware.OwnerFrom(c))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, values)
}

// PutSettings handles PUT /settings. The body replaces the stored document
// wholesale; schema violations come back as 422 with the validator's
// explanation.
func (h *Handlers) PutSettings(c *gin.Context) {
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := h.settings.Put(c.Request.Context(), middleware.OwnerFrom(c), values); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
