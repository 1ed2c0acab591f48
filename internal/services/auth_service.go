package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

const EventUserSignedUp = "user_signed_up"

var (
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired refresh token", ErrUnauthorized)
)

// Welcomer sends the post-signup email.
type Welcomer interface {
	SendWelcome(to, role string)
}

type AuthService struct {
	store   *repository.Store
	cfg     *config.Config
	welcome Welcomer
	events  EventSink
	now     func() time.Time
}

func NewAuthService(store *repository.Store, cfg *config.Config, welcome Welcomer, events EventSink) *AuthService {
	return &AuthService{store: store, cfg: cfg, welcome: welcome, events: events, now: time.Now}
}

// Signup creates the auth identity and the profile that shares its id.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		return nil, validation("email required and password must be at least 8 characters")
	}
	if !models.IsSelfServiceRole(req.Role) {
		return nil, validation("role must be one of seller, buyer, ally")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := models.Identity{ID: uuid.New(), Email: email, Password: string(hash)}
	if err := s.store.Identities.Create(ctx, &identity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: create identity: %v", ErrUpstream, err)
	}

	profile := models.Profile{
		UUID:   identity.ID,
		Email:  email,
		Role:   req.Role,
		Status: models.ProfileStatusNotStarted,
		Data:   datatypes.JSON("{}"),
	}
	if err := s.store.Profiles.Create(ctx, &profile); err != nil {
		// Without a profile the identity is unusable; drop it so the email can
		// sign up again.
		_ = s.store.Identities.Delete(ctx, identity.ID)
		return nil, fmt.Errorf("%w: create profile: %v", ErrUpstream, err)
	}

	if s.events != nil {
		id := identity.ID
		s.events.Record(&id, EventUserSignedUp, map[string]interface{}{"role": req.Role})
	}
	if s.welcome != nil {
		s.welcome.SendWelcome(email, req.Role)
	}
	return s.generateTokenPair(ctx, &identity, &profile)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	identity, err := s.store.Identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: load identity: %v", ErrUpstream, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profileFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, identity, profile)
}

// Refresh rotates a refresh token: the presented one is revoked either way.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.store.RefreshTokens.GetActiveByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: load refresh token: %v", ErrUpstream, err)
	}

	if err := s.store.RefreshTokens.Revoke(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("%w: revoke refresh token: %v", ErrUpstream, err)
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	identity, err := s.store.Identities.GetByID(ctx, stored.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: load identity: %v", ErrUpstream, err)
	}
	profile, err := s.profileFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, identity, profile)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	if req.RefreshToken == "" {
		return validation("refresh_token is required")
	}
	if err := s.store.RefreshTokens.Revoke(ctx, hashToken(req.RefreshToken)); err != nil {
		return fmt.Errorf("%w: revoke refresh token: %v", ErrUpstream, err)
	}
	return nil
}

// PruneTokens deletes revoked refresh tokens and those expired before now.
func (s *AuthService) PruneTokens(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens.DeleteExpired(ctx, s.now())
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.store.Profiles.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return profile, nil
}

// profileFor tolerates identities without a profile (e.g. created by the CLI
// before a role was assigned); the token then carries no role.
func (s *AuthService) profileFor(ctx context.Context, identity *models.Identity) (*models.Profile, error) {
	profile, err := s.store.Profiles.Get(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Profile{UUID: identity.ID, Email: identity.Email}, nil
	}
	return nil, fmt.Errorf("%w: load profile: %v", ErrUpstream, err)
}

func (s *AuthService) generateTokenPair(ctx context.Context, identity *models.Identity, profile *models.Profile) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(identity, profile)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dto.UserResponse{
			ID:     identity.ID,
			Email:  identity.Email,
			Role:   profile.Role,
			Status: profile.Status,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(identity *models.Identity, profile *models.Profile) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   identity.ID.String(),
		"email": identity.Email,
		"role":  profile.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, identity *models.Identity) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:         uuid.New(),
		IdentityID: identity.ID,
		TokenHash:  hashToken(rawToken),
		ExpiresAt:  s.now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.store.RefreshTokens.Create(ctx, &record); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
