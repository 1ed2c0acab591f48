package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type welcomeLog struct {
	sent []string
}

func (w *welcomeLog) SendWelcome(to, role string) { w.sent = append(w.sent, to+"/"+role) }

func newAuth(t *testing.T) (*AuthService, *fixture, *welcomeLog) {
	t.Helper()
	f := newFixture(t)
	welcome := &welcomeLog{}
	return NewAuthService(f.store, testConfig(), welcome, f.events), f, welcome
}

func TestSignupCreatesIdentityAndProfile(t *testing.T) {
	auth, f, welcome := newAuth(t)

	resp, err := auth.Signup(f.ctx, &dto.SignupRequest{Email: " New@Example.com ", Password: "password123", Role: models.RoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, models.RoleBuyer, resp.User.Role)
	assert.Equal(t, models.ProfileStatusNotStarted, resp.User.Status)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := session.Parse("test-secret", resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleBuyer, claims.Role)

	profile, err := f.store.Profiles.Get(f.ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, profile.Role)
	assert.Equal(t, []string{"new@example.com/buyer"}, welcome.sent)
	assert.Contains(t, f.events.Types(), EventUserSignedUp)
}

func TestSignupRejects(t *testing.T) {
	auth, f, _ := newAuth(t)

	_, err := auth.Signup(f.ctx, &dto.SignupRequest{Email: "a@example.com", Password: "password123", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrValidation, "admin is never self-service")

	_, err = auth.Signup(f.ctx, &dto.SignupRequest{Email: "a@example.com", Password: "short", Role: models.RoleSeller})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = auth.Signup(f.ctx, &dto.SignupRequest{Email: "a@example.com", Password: "password123", Role: models.RoleSeller})
	require.NoError(t, err)
	_, err = auth.Signup(f.ctx, &dto.SignupRequest{Email: "A@example.com", Password: "password123", Role: models.RoleSeller})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	auth, f, _ := newAuth(t)
	_, err := auth.Signup(f.ctx, &dto.SignupRequest{Email: "me@example.com", Password: "password123", Role: models.RoleAlly})
	require.NoError(t, err)

	resp, err := auth.Login(f.ctx, &dto.LoginRequest{Email: "ME@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAlly, resp.User.Role)

	_, err = auth.Login(f.ctx, &dto.LoginRequest{Email: "me@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Login(f.ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRotates(t *testing.T) {
	auth, f, _ := newAuth(t)
	signup, err := auth.Signup(f.ctx, &dto.SignupRequest{Email: "me@example.com", Password: "password123", Role: models.RoleSeller})
	require.NoError(t, err)

	refreshed, err := auth.Refresh(f.ctx, &dto.RefreshRequest{RefreshToken: signup.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, signup.RefreshToken, refreshed.RefreshToken)

	_, err = auth.Refresh(f.ctx, &dto.RefreshRequest{RefreshToken: signup.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized, "a rotated token cannot be reused")

	require.NoError(t, auth.Logout(f.ctx, &dto.LogoutRequest{RefreshToken: refreshed.RefreshToken}))
	_, err = auth.Refresh(f.ctx, &dto.RefreshRequest{RefreshToken: refreshed.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshExpired(t *testing.T) {
	auth, f, _ := newAuth(t)
	signup, err := auth.Signup(f.ctx, &dto.SignupRequest{Email: "me@example.com", Password: "password123", Role: models.RoleSeller})
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Refresh(f.ctx, &dto.RefreshRequest{RefreshToken: signup.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutRequiresToken(t *testing.T) {
	auth, f, _ := newAuth(t)
	assert.ErrorIs(t, auth.Logout(f.ctx, &dto.LogoutRequest{}), ErrValidation)
}
