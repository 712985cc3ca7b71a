package correction

import (
	"net/http"

	"attribution_backend/platform/httpkit"
	"attribution_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles correction HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleCorrect reconciles one contact's attribution on demand.
// POST /api/correction
func (h *Handler) HandleCorrect(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	outcome, err := h.service.Apply(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := gin.H{
		"success":   true,
		"contactId": outcome.ContactID,
		"applied":   outcome.Applied,
		"reason":    outcome.Reason,
		"source":    outcome.Source,
		"message":   outcome.Message,
	}
	if outcome.Applied {
		resp["originalAttribution"] = outcome.Original
		resp["newAttribution"] = outcome.New
	}
	c.JSON(http.StatusOK, resp)
}
