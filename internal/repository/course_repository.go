package repository

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

type CourseRepository interface {
	BaseRepository[models.Course]
	List(ctx context.Context) ([]models.Course, error)
}

type courseRepository struct {
	BaseRepository[models.Course]
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{BaseRepository: NewBaseRepository[models.Course](db, "course"), db: db}
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list courses failed")
	}
	return out, nil
}

// CourseDirectory resolves course ids.
type CourseDirectory interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// CachedCourseDirectory keeps recently resolved courses in an LRU. Courses are
// not renamed or deleted through this service, so entries never go stale in a
// way that matters for scoping.
type CachedCourseDirectory struct {
	repo  CourseRepository
	cache *lru.Cache[uuid.UUID, models.Course]
}

func NewCachedCourseDirectory(repo CourseRepository, size int) (*CachedCourseDirectory, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[uuid.UUID, models.Course](size)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "course cache init failed")
	}
	return &CachedCourseDirectory{repo: repo, cache: c}, nil
}

func (d *CachedCourseDirectory) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	if c, ok := d.cache.Get(id); ok {
		return &c, nil
	}
	var c models.Course
	if err := d.repo.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}
	d.cache.Add(id, c)
	return &c, nil
}

// Forget drops a cached course.
func (d *CachedCourseDirectory) Forget(id uuid.UUID) { d.cache.Remove(id) }
