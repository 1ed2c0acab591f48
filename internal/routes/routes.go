package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/guard"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Health      *handlers.HealthHandler
	Onboarding  *handlers.OnboardingHandler
	Admin       *handlers.AdminHandler
	Flows       *handlers.FlowHandler
	Contracts   *handlers.ContractHandler
	Email       *handlers.EmailHandler
	Marketplace *handlers.MarketplaceHandler
	Pages       *handlers.PageHandler
}

func Setup(app *fiber.App, cfg *config.Config, profiles repository.ProfileRepository, h Handlers, pages *guard.Guard) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Pages (role guard redirects, never a JSON error)
	app.Get("/", pages.Landing)
	app.Get("/login", h.Pages.Login)
	app.Get("/onboarding", pages.Onboarding(), h.Pages.Onboarding)
	app.Get("/onboarding/*", pages.Onboarding(), h.Pages.Onboarding)
	app.Get("/dashboard", pages.Onboarding(), h.Pages.Dashboard)
	app.Get("/admin", pages.Admin(), h.Pages.Admin)
	app.Get("/admin/*", pages.Admin(), h.Pages.Admin)

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected routes (JWT required) - apply middleware to individual routes
	// This prevents JWT middleware from affecting public routes
	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Get("/me", jwt, h.Auth.Me)
	api.Get("/contracts/:filename", jwt, h.Contracts.Get)
	api.Get("/marketplace/profiles", jwt, h.Marketplace.List)

	onboarding := api.Group("/onboarding", jwt)
	onboarding.Get("/progress", h.Onboarding.Progress)
	onboarding.Get("/current", h.Onboarding.Current)
	onboarding.Get("/next", h.Onboarding.Next)
	onboarding.Post("/start", h.Onboarding.Start)
	onboarding.Post("/advance", h.Onboarding.Advance)
	onboarding.Put("/stages/:stage_id/answers", h.Onboarding.SaveAnswers)
	onboarding.Put("/stages/:stage_id/status", h.Onboarding.SetStatus)
	onboarding.Get("/stages/:stage_id/form", h.Onboarding.Form)

	// Email passthrough is an admin console operation
	api.Post("/send-email", jwt, middleware.AdminRequired(profiles), h.Email.Send)

	// Admin console (protected + admin required)
	admin := api.Group("/admin", jwt, middleware.AdminRequired(profiles))
	admin.Get("/stages", h.Admin.ListStages)
	admin.Get("/stages/next", h.Admin.NextStages)
	admin.Post("/stages", h.Admin.CreateStage)
	admin.Put("/stages", h.Admin.UpdateStage)
	admin.Put("/stages/:stage_id", h.Admin.UpdateStage)

	admin.Get("/flows", h.Flows.List)
	admin.Post("/flows", h.Flows.Create)
	admin.Delete("/flows", h.Flows.Delete)
	admin.Get("/flows/:name", h.Flows.Get)
	admin.Put("/flows/:name/sections", h.Flows.SaveSections)
	admin.Post("/flows/:name/sections/:section_id/reorder", h.Flows.Reorder)

	admin.Get("/onboarding-progress", h.Admin.GetProgress)
	admin.Post("/onboarding-progress", h.Admin.SetProgress)
	admin.Get("/profile-notes", h.Admin.GetNote)
	admin.Post("/profile-notes", h.Admin.SaveNote)
	admin.Get("/user-profile", h.Admin.UserProfile)

	admin.Get("/users", h.Admin.ListUsers)
	admin.Get("/users/:uuid", h.Admin.GetUser)
	admin.Put("/users/:uuid", h.Admin.UpdateUser)
	admin.Delete("/users/:uuid", h.Admin.DeleteUser)

	admin.Get("/workflows", h.Admin.ListWorkflows)
	admin.Put("/workflows/:role", h.Admin.SaveWorkflow)

	admin.Get("/metrics/dashboard", h.Admin.Dashboard)
	admin.Get("/activity/recent", h.Admin.RecentActivity)
	admin.Get("/analytics", h.Admin.Analytics)
	admin.Get("/user-journey", h.Admin.UserJourney)
}
