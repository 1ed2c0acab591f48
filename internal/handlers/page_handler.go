package handlers

import (
	"html"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/guard"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/gofiber/fiber/v2"
)

// PageHandler serves the HTML shells the console and onboarding pages mount
// into. Access control happens in guard before these run.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

const pageStyle = `<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:960px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}</style>`

func shell(c *fiber.Ctx, title, app string) error {
	email := ""
	if claims, ok := c.Locals(guard.ClaimsKey).(*session.Claims); ok {
		email = claims.Email
	}
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>` + html.EscapeString(title) + `</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
` + pageStyle + `
</head><body>
<h1>` + html.EscapeString(title) + `</h1>
<div id="app" data-app="` + app + `" data-user="` + html.EscapeString(email) + `"></div>
</body></html>`)
}

func (h *PageHandler) Login(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Sign in</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
` + pageStyle + `
</head><body>
<h1>Sign in</h1>
<form method="post" action="/api/auth/login">
<p><label>Email <input type="email" name="email" required></label></p>
<p><label>Password <input type="password" name="password" required></label></p>
<p><button type="submit">Sign in</button></p>
</form>
</body></html>`)
}

func (h *PageHandler) Onboarding(c *fiber.Ctx) error {
	return shell(c, "Onboarding", "onboarding")
}

func (h *PageHandler) Dashboard(c *fiber.Ctx) error {
	return shell(c, "Dashboard", "dashboard")
}

func (h *PageHandler) Admin(c *fiber.Ctx) error {
	return shell(c, "Admin console", "admin")
}
