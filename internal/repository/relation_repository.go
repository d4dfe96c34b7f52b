package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

type RelationRepository interface {
	BaseRepository[models.Relation]
	WithTx(tx *gorm.DB) RelationRepository
	GetByPair(ctx context.Context, sourceID, targetID uint, dest *models.Relation) error
	// ListAmong returns relations whose endpoints are both in nodeIDs, by ascending id.
	ListAmong(ctx context.Context, nodeIDs []uint) ([]models.Relation, error)
	UpdateWeight(ctx context.Context, id uint, weight int) error
}

type relationRepository struct {
	BaseRepository[models.Relation]
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{BaseRepository: NewBaseRepository[models.Relation](db, "relation"), db: db}
}

func (r *relationRepository) WithTx(tx *gorm.DB) RelationRepository { return NewRelationRepository(tx) }

func (r *relationRepository) GetByPair(ctx context.Context, sourceID, targetID uint, dest *models.Relation) error {
	err := r.db.WithContext(ctx).Where("node1_id = ? AND node2_id = ?", sourceID, targetID).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "relation not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get relation by pair failed")
	}
	return nil
}

func (r *relationRepository) ListAmong(ctx context.Context, nodeIDs []uint) ([]models.Relation, error) {
	out := []models.Relation{}
	if len(nodeIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("node1_id IN ? AND node2_id IN ?", nodeIDs, nodeIDs).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list relations failed")
	}
	return out, nil
}

func (r *relationRepository) UpdateWeight(ctx context.Context, id uint, weight int) error {
	res := r.db.WithContext(ctx).Model(&models.Relation{}).Where("id = ?", id).Update("weight", weight)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update relation weight failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "relation not found")
	}
	return nil
}
