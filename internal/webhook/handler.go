package webhook

import (
	"net/http"

	"attribution_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// batchRequest is the CRM's delivery envelope around the event batch.
type batchRequest struct {
	Events []Event `json:"events"`
}

// HandleBatch processes a batch of CRM event notifications.
// POST /api/webhook
func (h *Handler) HandleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	outcome := h.service.ProcessBatch(c.Request.Context(), req.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"eventsProcessed":        outcome.EventsProcessed,
		"attributionCorrections": outcome.AttributionCorrections,
		"results":                outcome.Results,
	})
}

// HandleChallenge answers the CRM's endpoint verification probe by echoing
// the challenge token as plain text.
// GET /api/webhook
func (h *Handler) HandleChallenge(c *gin.Context) {
	challenge := c.Query("hub.challenge")
	if challenge == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing hub.challenge parameter", nil)
		return
	}
	c.String(http.StatusOK, challenge)
}
