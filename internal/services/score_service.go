package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/graph"
	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/repository"
	appErr "github.com/giraph/engine/pkg/errors"
	"github.com/giraph/engine/pkg/logger"
	"github.com/giraph/engine/pkg/metrics"
)

// Item outcomes, also used as metric labels.
const (
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeFiltered = "filtered"
)

// ScoreService writes class-average and per-student scores and computes
// propagated results.
type ScoreService interface {
	// ApplyScores persists each value on the course content node its header
	// resolves to. Items are independent: a bad item is skipped, the rest
	// still apply. Returns the scored graph after all writes.
	ApplyScores(ctx context.Context, courseID *uuid.UUID, items []HeaderScore) (*GraphView, *ItemSummary, error)
	// ResetScores clears persisted course content scores in scope. Idempotent.
	ResetScores(ctx context.Context, courseID *uuid.UUID) (*GraphView, error)
	// ImportStudentGrades upserts one student's grades by content identity.
	ImportStudentGrades(ctx context.Context, input *GradeImportInput) (*ItemSummary, error)
	// ComputeStudentResults propagates one student's scores. Nothing is persisted.
	ComputeStudentResults(ctx context.Context, input *StudentResultsInput) (*StudentResults, error)
}

// HeaderScore is one (header, value) pair in source column order.
type HeaderScore struct {
	Header string  `json:"header"`
	Value  float64 `json:"value"`
}

type ItemSummary struct {
	Applied  int `json:"applied"`
	Skipped  int `json:"skipped"`
	Filtered int `json:"filtered"`
}

func (s *ItemSummary) count(outcome string) {
	switch outcome {
	case OutcomeApplied:
		s.Applied++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFiltered:
		s.Filtered++
	}
	metrics.ScoreItems.WithLabelValues(outcome).Inc()
}

const maxStudentIDLength = 64

type GradeImportInput struct {
	StudentID string
	CourseID  *uuid.UUID
	Items     []HeaderScore
}

type StudentResultsInput struct {
	StudentID string
	CourseID  *uuid.UUID
	// Overrides maps course content names to scores; exact name wins over a
	// case-insensitive match.
	Overrides map[string]float64
}

type ContentResult struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	StudentGrade float64 `json:"student_grade"`
}

type OutcomeResult struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	CalculatedScore float64 `json:"calculated_score"`
}

type StudentResults struct {
	StudentID       string          `json:"student_id,omitempty"`
	CourseContents  []ContentResult `json:"course_contents"`
	CourseOutcomes  []OutcomeResult `json:"course_outcomes"`
	ProgramOutcomes []OutcomeResult `json:"program_outcomes"`
}

type scoreService struct {
	db         *gorm.DB
	nodes      repository.NodeRepository
	relations  repository.RelationRepository
	contents   repository.ContentRepository
	grades     repository.GradeRepository
	courses    repository.CourseDirectory
	graphs     GraphService
	filter     graph.HeaderFilter
	strategies []graph.Strategy
}

func NewScoreService(
	db *gorm.DB,
	nodes repository.NodeRepository,
	relations repository.RelationRepository,
	contents repository.ContentRepository,
	grades repository.GradeRepository,
	courses repository.CourseDirectory,
	graphs GraphService,
	filter graph.HeaderFilter,
) ScoreService {
	return &scoreService{
		db:         db,
		nodes:      nodes,
		relations:  relations,
		contents:   contents,
		grades:     grades,
		courses:    courses,
		graphs:     graphs,
		filter:     filter,
		strategies: graph.DefaultStrategies,
	}
}

var _ ScoreService = (*scoreService)(nil)

func (s *scoreService) ApplyScores(ctx context.Context, courseID *uuid.UUID, items []HeaderScore) (*GraphView, *ItemSummary, error) {
	if err := requireCourse(ctx, s.courses, courseID); err != nil {
		return nil, nil, err
	}

	summary := &ItemSummary{}
	for _, item := range items {
		outcome := s.inItemTx(ctx, item, func(tx *gorm.DB) error {
			n, err := s.resolve(ctx, s.nodes.WithTx(tx), courseID, item.Header)
			if err != nil {
				return err
			}
			v := item.Value
			if err := s.nodes.WithTx(tx).SetScore(ctx, n.ID, &v); err != nil {
				return err
			}
			// the content identity is optional; zero rows is fine
			_, err = s.contents.WithTx(tx).SetScoreByName(ctx, n.Name, &v)
			return err
		})
		summary.count(outcome)
	}

	logger.L().Info("scores applied",
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("filtered", summary.Filtered))

	view, err := s.graphs.GetScoredGraph(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	return view, summary, nil
}

func (s *scoreService) ResetScores(ctx context.Context, courseID *uuid.UUID) (*GraphView, error) {
	if err := requireCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}
	names, err := s.nodes.WithTx(tx).ClearScores(ctx, repository.NodeFilter{
		Layers:   []models.Layer{models.LayerCourseContent},
		CourseID: courseID,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.contents.WithTx(tx).ClearScoresByName(ctx, names); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	logger.L().Info("scores reset", zap.Int("nodes", len(names)))
	return s.graphs.GetScoredGraph(ctx, courseID)
}

func (s *scoreService) ImportStudentGrades(ctx context.Context, input *GradeImportInput) (*ItemSummary, error) {
	studentID := strings.TrimSpace(input.StudentID)
	if studentID == "" || utf8.RuneCountInString(studentID) > maxStudentIDLength {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("student_id must be 1 to %d characters", maxStudentIDLength))
	}
	if err := requireCourse(ctx, s.courses, input.CourseID); err != nil {
		return nil, err
	}

	summary := &ItemSummary{}
	for _, item := range input.Items {
		outcome := s.inItemTx(ctx, item, func(tx *gorm.DB) error {
			n, err := s.resolve(ctx, s.nodes.WithTx(tx), input.CourseID, item.Header)
			if err != nil {
				return err
			}
			c, err := s.contents.WithTx(tx).Ensure(ctx, n.Name)
			if err != nil {
				return err
			}
			return s.grades.WithTx(tx).Upsert(ctx, &models.StudentGrade{
				StudentID: studentID,
				ContentID: c.ID,
				Score:     item.Value,
			})
		})
		summary.count(outcome)
	}

	logger.L().Info("student grades imported",
		zap.String("student_id", studentID),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func (s *scoreService) ComputeStudentResults(ctx context.Context, input *StudentResultsInput) (*StudentResults, error) {
	if err := requireCourse(ctx, s.courses, input.CourseID); err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, s.nodes, s.relations, input.CourseID)
	if err != nil {
		return nil, err
	}
	leaves, err := s.studentLeaves(ctx, strings.TrimSpace(input.StudentID), snap, input.Overrides)
	if err != nil {
		return nil, err
	}
	scores := graph.Propagate(snap, leaves)

	out := &StudentResults{
		StudentID:       input.StudentID,
		CourseContents:  []ContentResult{},
		CourseOutcomes:  []OutcomeResult{},
		ProgramOutcomes: []OutcomeResult{},
	}
	for _, n := range snap.Nodes {
		switch n.Layer {
		case models.LayerCourseContent:
			out.CourseContents = append(out.CourseContents, ContentResult{ID: n.ID, Name: n.Name, StudentGrade: leaves[n.ID]})
		case models.LayerCourseOutcome:
			out.CourseOutcomes = append(out.CourseOutcomes, OutcomeResult{ID: n.ID, Name: n.Name, CalculatedScore: graph.Round2(scores.Of(n.ID))})
		case models.LayerProgramOutcome:
			out.ProgramOutcomes = append(out.ProgramOutcomes, OutcomeResult{ID: n.ID, Name: n.Name, CalculatedScore: graph.Round2(scores.Of(n.ID))})
		}
	}
	return out, nil
}

// studentLeaves picks each course content score from, in order: an override,
// the student's recorded grade, the node score, the content score, 0.
func (s *scoreService) studentLeaves(ctx context.Context, studentID string, snap graph.Snapshot, overrides map[string]float64) (map[uint]float64, error) {
	var names []string
	for _, n := range snap.Nodes {
		if n.Layer == models.LayerCourseContent {
			names = append(names, n.Name)
		}
	}
	contents, err := s.contents.ListByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(contents))
	for _, c := range contents {
		ids = append(ids, c.ID)
	}
	grades, err := s.grades.ForStudent(ctx, studentID, ids)
	if err != nil {
		return nil, err
	}

	leaves := make(map[uint]float64, len(names))
	for _, n := range snap.Nodes {
		if n.Layer != models.LayerCourseContent {
			continue
		}
		if v, ok := lookupOverride(overrides, n.Name); ok {
			leaves[n.ID] = v
			continue
		}
		c, linked := contents[models.FoldName(n.Name)]
		if linked {
			if g, ok := grades[c.ID]; ok {
				leaves[n.ID] = g
				continue
			}
		}
		switch {
		case n.Score != nil:
			leaves[n.ID] = *n.Score
		case linked && c.Score != nil:
			leaves[n.ID] = *c.Score
		default:
			leaves[n.ID] = 0
		}
	}
	return leaves, nil
}

func lookupOverride(overrides map[string]float64, name string) (float64, bool) {
	if len(overrides) == 0 {
		return 0, false
	}
	if v, ok := overrides[name]; ok {
		return v, true
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if models.SameName(k, name) {
			return overrides[k], true
		}
	}
	return 0, false
}

// resolve maps a header to a course content node. With a course scope an
// unmatched header creates a node named after the normalized header.
func (s *scoreService) resolve(ctx context.Context, nodes repository.NodeRepository, courseID *uuid.UUID, header string) (*models.Node, error) {
	candidates, err := nodes.List(ctx, repository.NodeFilter{
		Layers:   []models.Layer{models.LayerCourseContent},
		CourseID: courseID,
	})
	if err != nil {
		return nil, err
	}
	if m, ok := graph.Resolve(header, candidates, s.strategies); ok {
		metrics.HeaderResolutions.WithLabelValues(m.Strategy).Inc()
		return &m.Node, nil
	}
	name := graph.NormalizeHeader(header)
	if courseID == nil || name == "" {
		return nil, appErr.Wrap(ErrNodeNotResolved, appErr.CodeUnresolvedReference, "header does not match any course content").
			WithMeta("header", header)
	}
	if _, err := cleanName(name); err != nil {
		return nil, err
	}
	n := models.NewNode(name, models.LayerCourseContent, courseID)
	if err := nodes.Create(ctx, n); err != nil {
		return nil, domainError(err, nil, ErrDuplicateNode)
	}
	metrics.HeaderResolutions.WithLabelValues("created").Inc()
	metrics.GraphMutations.WithLabelValues("create_node").Inc()
	logger.L().Info("course content auto-created", zap.Uint("node_id", n.ID), zap.String("name", n.Name))
	return n, nil
}

// inItemTx runs fn for one bulk item in its own transaction and reports the
// item outcome. Item errors are logged and swallowed.
func (s *scoreService) inItemTx(ctx context.Context, item HeaderScore, fn func(tx *gorm.DB) error) string {
	if s.filter.Skip(item.Header) {
		return OutcomeFiltered
	}
	if math.IsNaN(item.Value) || math.IsInf(item.Value, 0) {
		logger.L().Debug("score item skipped", zap.String("header", item.Header), zap.String("reason", "not a finite number"))
		return OutcomeSkipped
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		logger.L().Error("begin item transaction failed", zap.Error(tx.Error))
		return OutcomeSkipped
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		logger.L().Debug("score item skipped", zap.String("header", item.Header), zap.Error(err))
		return OutcomeSkipped
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		logger.L().Warn("commit item transaction failed", zap.String("header", item.Header), zap.Error(err))
		return OutcomeSkipped
	}
	return OutcomeApplied
}
