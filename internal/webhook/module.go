// Package webhook provides the CRM webhook bounded context module.
// This file defines the module that encapsulates setup and route registration.
package webhook

import (
	"attribution_backend/internal/events"
	apphttp "attribution_backend/internal/http"
	"attribution_backend/internal/scheduler"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(corrector Corrector, retries scheduler.CorrectionScheduler, cfg config.WebhookConfig, bus events.Bus, log *logger.Logger) *Module {
	service := NewService(corrector, retries, bus, log)
	handler := NewHandler(service)

	return &Module{
		handler: handler,
		secret:  cfg.GetWebhookSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.API.Group("/webhook")
	group.Use(ctx.WebhookRateLimiter.RateLimit())
	group.Use(SignatureMiddleware(m.secret))
	group.POST("", m.handler.HandleBatch)
	group.GET("", m.handler.HandleChallenge)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
