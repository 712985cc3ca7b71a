package contacts

import (
	"net/http"

	"attribution_backend/platform/httpkit"
	"attribution_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles contact HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleSubmit submits a contact with attribution context.
// POST /api/contacts
func (h *Handler) HandleSubmit(c *gin.Context) {
	var req SubmitRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Submit(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	resp := gin.H{
		"success":   true,
		"contactId": result.ContactID,
		"created":   result.Created,
		"channel":   result.Channel,
	}
	if result.MeetingURL != "" {
		resp["meetingUrl"] = result.MeetingURL
	}
	c.JSON(status, resp)
}

// HandleUpdateAttribution patches attribution properties on a contact.
// POST /api/attribution
func (h *Handler) HandleUpdateAttribution(c *gin.Context) {
	var req UpdateAttributionRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.UpdateAttribution(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"contactId":         result.ContactID,
		"updatedProperties": result.UpdatedProperties,
		"skipped":           result.Skipped,
	})
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
