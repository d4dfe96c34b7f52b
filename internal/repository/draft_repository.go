package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

type DraftRepository interface {
	BaseRepository[models.SyllabusDraft]
	MarkReady(ctx context.Context, id uuid.UUID, candidates datatypes.JSON) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.SyllabusDraft, error)
}

type draftRepository struct {
	BaseRepository[models.SyllabusDraft]
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{BaseRepository: NewBaseRepository[models.SyllabusDraft](db, "syllabus draft"), db: db}
}

func (r *draftRepository) MarkReady(ctx context.Context, id uuid.UUID, candidates datatypes.JSON) error {
	return r.setStatus(ctx, id, map[string]any{
		"status":     models.DraftStatusReady,
		"candidates": candidates,
		"error":      "",
	})
}

func (r *draftRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, map[string]any{
		"status": models.DraftStatusFailed,
		"error":  reason,
	})
}

func (r *draftRepository) setStatus(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.SyllabusDraft{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update syllabus draft failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "syllabus draft not found")
	}
	return nil
}

func (r *draftRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.SyllabusDraft, error) {
	var out []models.SyllabusDraft
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list syllabus drafts failed")
	}
	return out, nil
}
