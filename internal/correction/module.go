// Package correction provides the attribution correction bounded context module.
package correction

import (
	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/events"
	apphttp "attribution_backend/internal/http"
	"attribution_backend/internal/hubspot"
	"attribution_backend/platform/logger"
	"attribution_backend/platform/validator"
)

// Module is the correction bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the correction module with all its dependencies.
func NewModule(crm hubspot.API, store attrstore.Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(crm, store, bus, log)
	handler := NewHandler(service, val)

	return &Module{
		handler: handler,
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "correction"
}

// Service exposes the correction service for the webhook relay and the
// task worker.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts correction routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.API.POST("/correction", m.handler.HandleCorrect)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
