// Package guard decides where a page request goes based on the session and
// the user's role. Admin pages fail closed on any doubt about the role;
// onboarding pages fail open on it but never without a session.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Kind int

const (
	AdminGuard Kind = iota
	OnboardingGuard
)

type Destination string

const (
	Login      Destination = "/login"
	Admin      Destination = "/admin"
	Onboarding Destination = "/onboarding"
	Dashboard  Destination = "/dashboard"
	Render     Destination = ""
)

// ErrNoRole marks a user with no profile row or an empty role.
var ErrNoRole = errors.New("role not assigned")

// Decide applies the guard rules in order; the first match wins.
func Decide(kind Kind, hasSession bool, role string, roleErr error) Destination {
	if !hasSession {
		return Login
	}
	if roleErr != nil || role == "" {
		if kind == AdminGuard {
			return Onboarding
		}
		return Render
	}
	if role == models.RoleAdmin {
		if kind == AdminGuard {
			return Render
		}
		return Admin
	}
	if kind == AdminGuard {
		return Onboarding
	}
	return Render
}

// Land picks the home page for "/". A user whose current stage is completed
// and has nowhere further to go lands on the dashboard.
func Land(hasSession bool, role string, roleErr error, current *services.CurrentStage, terminal bool) Destination {
	if !hasSession {
		return Login
	}
	if roleErr != nil || role == "" {
		return Onboarding
	}
	if role == models.RoleAdmin {
		return Admin
	}
	if current != nil && current.Status == models.StageStatusCompleted && terminal {
		return Dashboard
	}
	return Onboarding
}

// ProgressReader is the slice of the progress tracker the landing page needs.
type ProgressReader interface {
	GetCurrentStage(ctx context.Context, id uuid.UUID) (*services.CurrentStage, error)
	NextStages(ctx context.Context, id uuid.UUID) ([]models.Stage, error)
}

// ClaimsKey is the locals key rendered pages read the session from.
const ClaimsKey = "session"

type Guard struct {
	secret   string
	profiles repository.ProfileRepository
	progress ProgressReader
}

func New(secret string, profiles repository.ProfileRepository, progress ProgressReader) *Guard {
	return &Guard{secret: secret, profiles: profiles, progress: progress}
}

func (g *Guard) Admin() fiber.Handler {
	return g.handler(AdminGuard)
}

func (g *Guard) Onboarding() fiber.Handler {
	return g.handler(OnboardingGuard)
}

func (g *Guard) handler(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := session.Parse(g.secret, session.Token(c))
		if err != nil {
			return redirect(c, Login)
		}
		role, roleErr := g.role(c.UserContext(), claims.UserID)
		dest := Decide(kind, true, role, roleErr)
		if dest != Render {
			return redirect(c, dest)
		}
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Landing redirects "/" to the caller's home page.
func (g *Guard) Landing(c *fiber.Ctx) error {
	claims, err := session.Parse(g.secret, session.Token(c))
	if err != nil {
		return redirect(c, Login)
	}
	ctx := c.UserContext()
	role, roleErr := g.role(ctx, claims.UserID)

	var current *services.CurrentStage
	terminal := false
	if roleErr == nil && role != models.RoleAdmin {
		current, err = g.progress.GetCurrentStage(ctx, claims.UserID)
		if err != nil {
			slog.Warn("landing: current stage lookup failed", "uuid", claims.UserID, "error", err)
			current = nil
		}
		if current != nil && current.Status == models.StageStatusCompleted {
			next, err := g.progress.NextStages(ctx, claims.UserID)
			terminal = err == nil && len(next) == 0
		}
	}
	return redirect(c, Land(true, role, roleErr, current, terminal))
}

func (g *Guard) role(ctx context.Context, id uuid.UUID) (string, error) {
	profile, err := g.profiles.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("guard: role lookup failed", "uuid", id, "error", err)
		}
		return "", err
	}
	if profile.Role == "" {
		return "", ErrNoRole
	}
	return profile.Role, nil
}

func redirect(c *fiber.Ctx, dest Destination) error {
	return c.Redirect(string(dest), fiber.StatusFound)
}
