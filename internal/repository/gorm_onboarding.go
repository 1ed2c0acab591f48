package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStages struct {
	db *gorm.DB
}

func (r *gormStages) List(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	err := r.db.WithContext(ctx).
		Order("role ASC, onboarding_stage_index ASC").
		Find(&stages).Error
	return stages, err
}

func (r *gormStages) Get(ctx context.Context, id int) (*models.Stage, error) {
	var stage models.Stage
	if err := r.db.WithContext(ctx).First(&stage, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &stage, nil
}

func (r *gormStages) GetByIDs(ctx context.Context, ids []int) ([]models.Stage, error) {
	if len(ids) == 0 {
		return []models.Stage{}, nil
	}
	var stages []models.Stage
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&stages).Error
	return stages, err
}

func (r *gormStages) Create(ctx context.Context, stage *models.Stage) error {
	return translate(r.db.WithContext(ctx).Create(stage).Error)
}

func (r *gormStages) Save(ctx context.Context, stage *models.Stage) error {
	return translate(r.db.WithContext(ctx).Save(stage).Error)
}

type gormWorkflows struct {
	db *gorm.DB
}

func (r *gormWorkflows) Get(ctx context.Context, role string) (*models.Workflow, error) {
	var wf models.Workflow
	if err := r.db.WithContext(ctx).First(&wf, "role = ?", role).Error; err != nil {
		return nil, translate(err)
	}
	return &wf, nil
}

func (r *gormWorkflows) List(ctx context.Context) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.WithContext(ctx).Order("role ASC").Find(&workflows).Error
	return workflows, err
}

func (r *gormWorkflows) Save(ctx context.Context, workflow *models.Workflow) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"nodes", "updated_at"}),
	}).Create(workflow).Error
}

type gormFlows struct {
	db *gorm.DB
}

func (r *gormFlows) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Flow{}).
		Order("flow_name ASC").
		Pluck("flow_name", &names).Error
	return names, err
}

func (r *gormFlows) Get(ctx context.Context, name string) (*models.Flow, error) {
	var flow models.Flow
	if err := r.db.WithContext(ctx).First(&flow, "flow_name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &flow, nil
}

func (r *gormFlows) Create(ctx context.Context, flow *models.Flow) error {
	return translate(r.db.WithContext(ctx).Create(flow).Error)
}

func (r *gormFlows) Save(ctx context.Context, flow *models.Flow) error {
	return translate(r.db.WithContext(ctx).Save(flow).Error)
}

func (r *gormFlows) Delete(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("flow_name = ?", name).Delete(&models.Flow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormProgress struct {
	db *gorm.DB
}

func (r *gormProgress) ListByUser(ctx context.Context, id uuid.UUID) ([]models.StageProgress, error) {
	rows := []models.StageProgress{}
	err := r.db.WithContext(ctx).
		Where("uuid = ?", id).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormProgress) Get(ctx context.Context, id uuid.UUID, stageID int) (*models.StageProgress, error) {
	var row models.StageProgress
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND stage_id = ?", id, stageID).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *gormProgress) Create(ctx context.Context, progress *models.StageProgress) error {
	return translate(r.db.WithContext(ctx).Create(progress).Error)
}

func (r *gormProgress) Update(ctx context.Context, id uuid.UUID, stageID int, fields map[string]interface{}) (*models.StageProgress, error) {
	result := r.db.WithContext(ctx).Model(&models.StageProgress{}).
		Where("uuid = ? AND stage_id = ?", id, stageID).
		Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id, stageID)
}

func (r *gormProgress) UpsertStatus(ctx context.Context, progress *models.StageProgress) (*models.StageProgress, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}, {Name: "stage_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_updated_at"}),
	}).Create(progress).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.Get(ctx, progress.UUID, progress.StageID)
}

func (r *gormProgress) ListRecent(ctx context.Context, limit int) ([]models.StageProgress, error) {
	var rows []models.StageProgress
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *gormProgress) Previous(ctx context.Context, id uuid.UUID, before time.Time) (*models.StageProgress, error) {
	var row models.StageProgress
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND created_at < ?", id, before).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *gormProgress) DeleteByUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("uuid = ?", id).Delete(&models.StageProgress{}).Error
}

func (r *gormProgress) CountUpdatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.StageProgress{}).
		Where("last_updated_at >= ?", since).
		Count(&n).Error
	return n, err
}

func (r *gormProgress) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return groupCount(r.db.WithContext(ctx), &models.StageProgress{}, "status")
}
