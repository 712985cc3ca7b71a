// Package contacts provides the contact submission bounded context module.
// This file defines the module that encapsulates setup and route registration.
package contacts

import (
	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/events"
	apphttp "attribution_backend/internal/http"
	"attribution_backend/internal/hubspot"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"
	"attribution_backend/platform/validator"
)

// Module is the contacts bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the contacts module with all its dependencies.
func NewModule(crm hubspot.API, store attrstore.Store, bus events.Bus, cfg config.ContactsConfig, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(crm, store, bus, log)
	service.SetMeetingBaseURL(cfg.GetMeetingBaseURL())
	handler := NewHandler(service, val)

	return &Module{
		handler: handler,
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// Service exposes the submission service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.API.POST("/contacts", m.handler.HandleSubmit)
	ctx.API.POST("/attribution", m.handler.HandleUpdateAttribution)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
