package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/api/http/handlers"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/auth"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Organizations  *handlers.OrganizationsHandler
	Machines       *handlers.MachinesHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireRole())
	admin := auth.RequireRole(auth.RoleAdmin)
	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleTechnician)

	orgs := api.Group("/organizations")
	orgs.Post("", admin, cfg.Organizations.Create)
	orgs.Get("", cfg.Organizations.List)
	orgs.Get("/:id", cfg.Organizations.Get)
	orgs.Get("/:id/machines", cfg.Machines.ListByOrganization)
	orgs.Put("/:id/service-status", admin, cfg.Organizations.UpdateServiceStatus)
	orgs.Post("/:id/suspend", admin, cfg.Organizations.Suspend)
	orgs.Post("/:id/reactivate", admin, cfg.Organizations.Reactivate)
	orgs.Put("/:id/contact", admin, cfg.Organizations.UpdateContact)
	orgs.Post("/:id/contract/renew", admin, cfg.Organizations.RenewContract)
	orgs.Post("/:id/contract/check", admin, cfg.Organizations.CheckContract)
	orgs.Post("/:id/api-credential", admin, cfg.Organizations.GenerateCredential)

	machines := api.Group("/machines")
	machines.Post("", staff, cfg.Machines.Register)
	machines.Get("/:id", cfg.Machines.Get)
	machines.Put("/:id/status", staff, cfg.Machines.UpdateStatus)
	machines.Put("/:id/location", staff, cfg.Machines.UpdateLocation)
	machines.Post("/:id/api-token", admin, cfg.Machines.GenerateToken)
	machines.Post("/:id/api-token/regenerate", admin, cfg.Machines.RegenerateToken)
	machines.Post("/:id/maintenance/schedule", staff, cfg.Machines.ScheduleMaintenance)
	machines.Post("/:id/maintenance/complete", staff, cfg.Machines.CompleteMaintenance)
	machines.Post("/:id/alarm", staff, cfg.Machines.ActivateAlarm)
	machines.Post("/:id/alarm/clear", staff, cfg.Machines.ClearAlarm)

	intervals := api.Group("/maintenance-intervals")
	intervals.Post("", admin, cfg.Machines.CreateInterval)
	intervals.Get("", cfg.Machines.ListIntervals)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/number/:number", cfg.Tickets.GetTicketByNumber)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", staff, cfg.Tickets.Assign)
	tickets.Put("/:id/status", staff, cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/resolve", staff, cfg.Tickets.Resolve)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
}
