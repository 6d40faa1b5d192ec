package database

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerationRepository stores generation records in postgres
type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, g *models.Generation) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return apperr.Wrap(apperr.StorageWriteFailure, "failed to create generation record", err)
	}
	return nil
}

func (r *GenerationRepository) Get(ctx context.Context, id string) (*models.Generation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	var g models.Generation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageReadFailure, "failed to load generation", err)
	}
	return &g, nil
}

// ListByUser returns the user's generations, newest first
func (r *GenerationRepository) ListByUser(ctx context.Context, userID string) ([]models.Generation, error) {
	generations := []models.Generation{}
	if _, err := uuid.Parse(userID); err != nil {
		return generations, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&generations).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageReadFailure, "failed to list generations", err)
	}
	return generations, nil
}

// UpdateMetadata changes name and/or description; nil leaves a field as is
func (r *GenerationRepository) UpdateMetadata(ctx context.Context, id string, name, description *string) (*models.Generation, error) {
	g, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return g, nil
	}
	if err := r.db.WithContext(ctx).Model(g).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.StorageWriteFailure, "failed to update generation", err)
	}
	return r.Get(ctx, id)
}

func (r *GenerationRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Generation{})
	if result.Error != nil {
		return apperr.Wrap(apperr.StorageWriteFailure, "failed to delete generation", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Newf(apperr.NotFound, "generation %s not found", id)
	}
	return nil
}
