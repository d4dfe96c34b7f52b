package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

type GradeRepository interface {
	WithTx(tx *gorm.DB) GradeRepository
	// Upsert writes the grade; an existing (student, content) pair is overwritten.
	Upsert(ctx context.Context, g *models.StudentGrade) error
	// ForStudent returns the student's grades keyed by content id.
	ForStudent(ctx context.Context, studentID string, contentIDs []uint) (map[uint]float64, error)
}

type gradeRepository struct {
	db *gorm.DB
}

func NewGradeRepository(db *gorm.DB) GradeRepository { return &gradeRepository{db: db} }

func (r *gradeRepository) WithTx(tx *gorm.DB) GradeRepository { return NewGradeRepository(tx) }

func (r *gradeRepository) Upsert(ctx context.Context, g *models.StudentGrade) error {
	g.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(g).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert student grade failed")
	}
	return nil
}

func (r *gradeRepository) ForStudent(ctx context.Context, studentID string, contentIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64)
	if studentID == "" || len(contentIDs) == 0 {
		return out, nil
	}
	var rows []models.StudentGrade
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND content_id IN ?", studentID, contentIDs).
		Find(&rows).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list student grades failed")
	}
	for _, g := range rows {
		out[g.ContentID] = g.Score
	}
	return out, nil
}
