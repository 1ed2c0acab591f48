package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormIdentities struct {
	db *gorm.DB
}

func (r *gormIdentities) Create(ctx context.Context, identity *models.Identity) error {
	return translate(r.db.WithContext(ctx).Create(identity).Error)
}

func (r *gormIdentities) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

func (r *gormIdentities) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

func (r *gormIdentities) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Identity{}).Error
	})
}

type gormRefreshTokens struct {
	db *gorm.DB
}

func (r *gormRefreshTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *gormRefreshTokens) GetActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = false", hash).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *gormRefreshTokens) Revoke(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("revoked", true).Error
}

func (r *gormRefreshTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = true", before).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
