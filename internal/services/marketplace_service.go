package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MarketplaceService lists profiles that finished onboarding.
type MarketplaceService struct {
	profiles repository.ProfileRepository
	statuses []string
}

func NewMarketplaceService(profiles repository.ProfileRepository, statuses []string) *MarketplaceService {
	if len(statuses) == 0 {
		statuses = []string{models.ProfileStatusBoarding}
	}
	return &MarketplaceService{profiles: profiles, statuses: statuses}
}

func (s *MarketplaceService) List(ctx context.Context, role string, limit, offset int) ([]models.Profile, int64, error) {
	if role != "" && !models.IsSelfServiceRole(role) {
		return nil, 0, validation("unknown role %q", role)
	}
	if offset < 0 {
		offset = 0
	}
	profiles, total, err := s.profiles.List(ctx, repository.ProfileFilter{
		Role:        role,
		Statuses:    s.statuses,
		ExcludeRole: models.RoleAdmin,
		Limit:       clampLimit(limit, DefaultPageSize, MaxPageSize),
		Offset:      offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list profiles: %v", ErrUpstream, err)
	}
	return profiles, total, nil
}
