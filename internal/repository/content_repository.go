package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

// ContentRepository manages content identities, matched by models.FoldName.
type ContentRepository interface {
	WithTx(tx *gorm.DB) ContentRepository
	FindByName(ctx context.Context, name string, dest *models.Content) error
	// Ensure returns the content with this name, creating it when missing.
	Ensure(ctx context.Context, name string) (*models.Content, error)
	// ListByNames returns contents keyed by models.FoldName of their name.
	ListByNames(ctx context.Context, names []string) (map[string]models.Content, error)
	SetScoreByName(ctx context.Context, name string, score *float64) (int64, error)
	ClearScoresByName(ctx context.Context, names []string) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository { return &contentRepository{db: db} }

func (r *contentRepository) WithTx(tx *gorm.DB) ContentRepository { return NewContentRepository(tx) }

func (r *contentRepository) FindByName(ctx context.Context, name string, dest *models.Content) error {
	err := r.db.WithContext(ctx).Where("name_key = ?", models.FoldName(name)).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "content not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "find content failed")
	}
	return nil
}

func (r *contentRepository) Ensure(ctx context.Context, name string) (*models.Content, error) {
	var c models.Content
	err := r.FindByName(ctx, name, &c)
	if err == nil {
		return &c, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}
	c = models.Content{Name: name}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		werr := writeError(err, "content", "create")
		if !appErr.IsCode(werr, appErr.CodeConflict) {
			return nil, werr
		}
		// lost a race to a concurrent writer
		if ferr := r.FindByName(ctx, name, &c); ferr != nil {
			return nil, werr
		}
	}
	return &c, nil
}

func foldNames(names []string) []string {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if k := models.FoldName(n); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (r *contentRepository) ListByNames(ctx context.Context, names []string) (map[string]models.Content, error) {
	out := make(map[string]models.Content, len(names))
	keys := foldNames(names)
	if len(keys) == 0 {
		return out, nil
	}
	var rows []models.Content
	if err := r.db.WithContext(ctx).Where("name_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list contents failed")
	}
	for _, c := range rows {
		out[c.NameKey] = c
	}
	return out, nil
}

func (r *contentRepository) SetScoreByName(ctx context.Context, name string, score *float64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Content{}).
		Where("name_key = ?", models.FoldName(name)).
		UpdateColumn("score", score)
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "set content score failed")
	}
	return res.RowsAffected, nil
}

func (r *contentRepository) ClearScoresByName(ctx context.Context, names []string) error {
	keys := foldNames(names)
	if len(keys) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Content{}).
		Where("name_key IN ? AND score IS NOT NULL", keys).
		UpdateColumn("score", nil).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear content scores failed")
	}
	return nil
}
