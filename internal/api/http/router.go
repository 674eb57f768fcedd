package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	// AttachmentsDir is served read-only under AttachmentsPrefix when both are set.
	AttachmentsDir    string
	AttachmentsPrefix string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.AttachmentsDir != "" && cfg.AttachmentsPrefix != "" {
		app.Static(cfg.AttachmentsPrefix, cfg.AttachmentsDir, fiber.Static{
			Browse:   false,
			Download: false,
		})
	}

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/create", cfg.Tickets.CreateTicket)
	tickets.Get("/all", cfg.Tickets.ListTickets)
	tickets.Post("/updateStatus", cfg.Tickets.UpdateStatus)

	app.Use(notFound)
}
