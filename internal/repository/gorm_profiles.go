package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormProfiles struct {
	db *gorm.DB
}

func (r *gormProfiles) Create(ctx context.Context, profile *models.Profile) error {
	return translate(r.db.WithContext(ctx).Create(profile).Error)
}

func (r *gormProfiles) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "uuid = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *gormProfiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *gormProfiles) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Profile, error) {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("uuid = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *gormProfiles) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("uuid = ?", id).Delete(&models.Profile{}).Error
}

func (r *gormProfiles) List(ctx context.Context, filter ProfileFilter) ([]models.Profile, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Profile{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.ExcludeRole != "" {
		query = query.Where("role IS NULL OR role <> ?", filter.ExcludeRole)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []models.Profile
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *gormProfiles) CountBy(ctx context.Context, column string) (map[string]int64, error) {
	if column != "role" && column != "status" {
		return nil, fmt.Errorf("cannot group profiles by %q", column)
	}
	return groupCount(r.db.WithContext(ctx), &models.Profile{}, column)
}

func (r *gormProfiles) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}
