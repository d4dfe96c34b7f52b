package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

// NodeFilter selects nodes. Empty Layers means every layer; a nil CourseID
// means every course (global mode).
type NodeFilter struct {
	Layers   []models.Layer
	CourseID *uuid.UUID
}

type NodeRepository interface {
	BaseRepository[models.Node]
	WithTx(tx *gorm.DB) NodeRepository
	// FindByKey looks up the node with exactly this (name, layer, scope).
	FindByKey(ctx context.Context, name string, layer models.Layer, scope string, dest *models.Node) error
	// List returns matching nodes in ascending id order.
	List(ctx context.Context, filter NodeFilter) ([]models.Node, error)
	Rename(ctx context.Context, id uint, name string) error
	SetScore(ctx context.Context, id uint, score *float64) error
	// ClearScores nulls the score of every matching node and returns their names.
	ClearScores(ctx context.Context, filter NodeFilter) ([]string, error)
	// DeleteCascade removes the node and every relation touching it.
	DeleteCascade(ctx context.Context, id uint) error
}

type nodeRepository struct {
	BaseRepository[models.Node]
	db *gorm.DB
}

func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &nodeRepository{BaseRepository: NewBaseRepository[models.Node](db, "node"), db: db}
}

func (r *nodeRepository) WithTx(tx *gorm.DB) NodeRepository { return NewNodeRepository(tx) }

func (r *nodeRepository) FindByKey(ctx context.Context, name string, layer models.Layer, scope string, dest *models.Node) error {
	err := r.db.WithContext(ctx).
		Where("name = ? AND layer = ? AND scope = ?", name, layer, scope).
		First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "node not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "find node failed")
	}
	return nil
}

func (r *nodeRepository) scoped(ctx context.Context, filter NodeFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Node{})
	if len(filter.Layers) > 0 {
		q = q.Where("layer IN ?", filter.Layers)
	}
	if filter.CourseID != nil {
		q = q.Where("course_id = ?", *filter.CourseID)
	}
	return q
}

func (r *nodeRepository) List(ctx context.Context, filter NodeFilter) ([]models.Node, error) {
	var out []models.Node
	if err := r.scoped(ctx, filter).Order("id ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list nodes failed")
	}
	return out, nil
}

func (r *nodeRepository) Rename(ctx context.Context, id uint, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Node{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return writeError(res.Error, "node", "rename")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "node not found")
	}
	return nil
}

func (r *nodeRepository) SetScore(ctx context.Context, id uint, score *float64) error {
	res := r.db.WithContext(ctx).Model(&models.Node{}).Where("id = ?", id).Update("score", score)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set node score failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "node not found")
	}
	return nil
}

func (r *nodeRepository) ClearScores(ctx context.Context, filter NodeFilter) ([]string, error) {
	var names []string
	if err := r.scoped(ctx, filter).Order("id ASC").Pluck("name", &names).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list scored nodes failed")
	}
	if err := r.scoped(ctx, filter).Where("score IS NOT NULL").Update("score", nil).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "clear node scores failed")
	}
	return names, nil
}

func (r *nodeRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node1_id = ? OR node2_id = ?", id, id).Delete(&models.Relation{}).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "delete node relations failed")
		}
		res := tx.Delete(&models.Node{}, "id = ?", id)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "delete node failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "node not found")
		}
		return nil
	})
}
