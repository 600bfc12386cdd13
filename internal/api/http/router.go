package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/dicri/evidence-service/internal/api/http/handlers"
	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	CaseFiles      *handlers.CaseFilesHandler
	Evidence       *handlers.EvidenceHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	var (
		admin       = auth.RequireRole(domain.RoleAdmin)
		reviewers   = auth.RequireRole(domain.RoleAdmin, domain.RoleCoordinator)
		technicians = auth.RequireRole(domain.RoleAdmin, domain.RoleTechnician)
	)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	if cfg.LoginLimiter != nil {
		authGroup.Post("/login", cfg.LoginLimiter.Handler(), cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Post("/", admin, cfg.Users.Create)
	users.Get("/", reviewers, cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", admin, cfg.Users.Update)
	users.Delete("/:id", admin, cfg.Users.Deactivate)

	caseFiles := api.Group("/expedientes", cfg.AuthMiddleware.Handle)
	caseFiles.Post("/", technicians, cfg.CaseFiles.Create)
	caseFiles.Get("/", cfg.CaseFiles.List)
	caseFiles.Get("/:id", cfg.CaseFiles.Get)
	caseFiles.Get("/:id/history", cfg.CaseFiles.History)
	caseFiles.Put("/:id", technicians, cfg.CaseFiles.Update)
	caseFiles.Delete("/:id", admin, cfg.CaseFiles.Delete)
	caseFiles.Post("/:id/submit", technicians, cfg.CaseFiles.Submit)
	caseFiles.Post("/:id/approve", reviewers, cfg.CaseFiles.Approve)
	caseFiles.Post("/:id/reject", reviewers, cfg.CaseFiles.Reject)
	caseFiles.Post("/:id/reopen", technicians, cfg.CaseFiles.Reopen)

	evidence := api.Group("/indicios", cfg.AuthMiddleware.Handle)
	evidence.Post("/", technicians, cfg.Evidence.Create)
	evidence.Get("/expediente/:id", cfg.Evidence.ListByCaseFile)
	evidence.Get("/:id", cfg.Evidence.Get)
	evidence.Put("/:id", technicians, cfg.Evidence.Update)
	evidence.Delete("/:id", technicians, cfg.Evidence.Delete)

	stats := api.Group("/stats", cfg.AuthMiddleware.Handle, reviewers)
	stats.Get("/general", cfg.Stats.General)
	stats.Get("/technicians", cfg.Stats.Technicians)
	stats.Get("/by-status", cfg.Stats.ByStatus)
	stats.Get("/monthly/:year?", cfg.Stats.Monthly)
}
