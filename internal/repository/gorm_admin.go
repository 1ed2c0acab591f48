package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormNotes struct {
	db *gorm.DB
}

func (r *gormNotes) Get(ctx context.Context, profileID uuid.UUID) (*models.ProfileNote, error) {
	var note models.ProfileNote
	if err := r.db.WithContext(ctx).First(&note, "profile_uuid = ?", profileID).Error; err != nil {
		return nil, translate(err)
	}
	return &note, nil
}

func (r *gormNotes) Create(ctx context.Context, note *models.ProfileNote) error {
	return translate(r.db.WithContext(ctx).Create(note).Error)
}

func (r *gormNotes) Update(ctx context.Context, profileID uuid.UUID, text string) (*models.ProfileNote, error) {
	result := r.db.WithContext(ctx).Model(&models.ProfileNote{}).
		Where("profile_uuid = ?", profileID).
		Updates(map[string]interface{}{"note": text, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, profileID)
}

func (r *gormNotes) DeleteByProfile(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("profile_uuid = ?", profileID).Delete(&models.ProfileNote{}).Error
}

type gormEvents struct {
	db *gorm.DB
}

func (r *gormEvents) CreateBatch(ctx context.Context, events []models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 50).Error
}

func (r *gormEvents) Query(ctx context.Context, filter EventFilter) ([]models.AnalyticsEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.AnalyticsEvent{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Start != nil {
		query = query.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("created_at <= ?", *filter.End)
	}
	if filter.Ascending {
		query = query.Order("created_at ASC")
	} else {
		query = query.Order("created_at DESC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	events := []models.AnalyticsEvent{}
	err := query.Find(&events).Error
	return events, err
}

func (r *gormEvents) DeleteByUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&models.AnalyticsEvent{}).Error
}

func (r *gormEvents) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AnalyticsEvent{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}
