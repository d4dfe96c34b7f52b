package services

import (
	"context"
	"fmt"
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

// GraphService owns node and relation lifecycle and assembles graph views.
type GraphService interface {
	CreateNode(ctx context.Context, input *CreateNodeInput) (*models.Node, error)
	RenameNode(ctx context.Context, id uint, name string) error
	DeleteNode(ctx context.Context, id uint) error

	CreateRelation(ctx context.Context, sourceID, targetID uint, weight int) (*models.Relation, error)
	UpdateRelationWeight(ctx context.Context, id uint, weight int) error
	DeleteRelation(ctx context.Context, id uint) error

	// GetFullGraph returns nodes with persisted scores only.
	GetFullGraph(ctx context.Context, courseID *uuid.UUID) (*GraphView, error)
	// GetScoredGraph fills course and program outcome scores from the
	// class-average propagation. Nothing is persisted.
	GetScoredGraph(ctx context.Context, courseID *uuid.UUID) (*GraphView, error)
	ListProgramOutcomes(ctx context.Context) ([]models.Node, error)
}

type CreateNodeInput struct {
	Name     string
	Layer    models.Layer
	CourseID *uuid.UUID
}

type graphService struct {
	db        *gorm.DB
	nodes     repository.NodeRepository
	relations repository.RelationRepository
	courses   repository.CourseDirectory
}

func NewGraphService(db *gorm.DB, nodes repository.NodeRepository, relations repository.RelationRepository, courses repository.CourseDirectory) GraphService {
	return &graphService{db: db, nodes: nodes, relations: relations, courses: courses}
}

var _ GraphService = (*graphService)(nil)

// cleanName trims and validates a node display name.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErr.Wrap(ErrInvalidName, appErr.CodeInvalid, "name must not be empty")
	}
	if utf8.RuneCountInString(name) > models.MaxNameLength {
		return "", appErr.Wrap(ErrInvalidName, appErr.CodeInvalid,
			fmt.Sprintf("name must be at most %d characters", models.MaxNameLength))
	}
	return name, nil
}

func checkWeight(weight int) error {
	if !models.ValidWeight(weight) {
		return appErr.Wrap(ErrInvalidWeight, appErr.CodeInvalid,
			fmt.Sprintf("weight must be between %d and %d", models.MinWeight, models.MaxWeight)).
			WithMeta("weight", weight)
	}
	return nil
}

// requireCourse resolves an optional course id; nil passes.
func requireCourse(ctx context.Context, dir repository.CourseDirectory, courseID *uuid.UUID) error {
	if courseID == nil {
		return nil
	}
	if _, err := dir.GetCourse(ctx, *courseID); err != nil {
		return domainError(err, ErrCourseNotFound, nil)
	}
	return nil
}

func (s *graphService) CreateNode(ctx context.Context, input *CreateNodeInput) (*models.Node, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Layer.Valid() {
		return nil, appErr.New(appErr.CodeInvalid, "unknown layer").WithMeta("layer", string(input.Layer))
	}
	if input.Layer == models.LayerProgramOutcome && input.CourseID != nil {
		return nil, appErr.New(appErr.CodeInvalid, "program outcomes cannot belong to a course")
	}
	if err := requireCourse(ctx, s.courses, input.CourseID); err != nil {
		return nil, err
	}

	n := models.NewNode(name, input.Layer, input.CourseID)
	if err := s.nodes.Create(ctx, n); err != nil {
		return nil, domainError(err, nil, ErrDuplicateNode)
	}

	metrics.GraphMutations.WithLabelValues("create_node").Inc()
	logger.L().Info("node created", zap.Uint("node_id", n.ID), zap.String("layer", string(n.Layer)), zap.String("scope", n.Scope))
	return n, nil
}

func (s *graphService) RenameNode(ctx context.Context, id uint, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	// uniqueness is enforced by the (name, layer, scope) index
	if err := s.nodes.Rename(ctx, id, name); err != nil {
		return domainError(err, ErrNodeNotFound, ErrDuplicateNode)
	}
	metrics.GraphMutations.WithLabelValues("rename_node").Inc()
	logger.L().Info("node renamed", zap.Uint("node_id", id))
	return nil
}

func (s *graphService) DeleteNode(ctx context.Context, id uint) error {
	if err := s.nodes.DeleteCascade(ctx, id); err != nil {
		return domainError(err, ErrNodeNotFound, nil)
	}
	metrics.GraphMutations.WithLabelValues("delete_node").Inc()
	logger.L().Info("node deleted", zap.Uint("node_id", id))
	return nil
}

// CreateRelation checks, in order: both endpoints exist, the layer pair is
// CC→CO or CO→PO, the weight is in range, the pair is new.
func (s *graphService) CreateRelation(ctx context.Context, sourceID, targetID uint, weight int) (*models.Relation, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}
	r, err := createRelation(ctx, s.nodes.WithTx(tx), s.relations.WithTx(tx), sourceID, targetID, weight)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	metrics.GraphMutations.WithLabelValues("create_relation").Inc()
	logger.L().Info("relation created", zap.Uint("relation_id", r.ID), zap.Uint("source_id", sourceID), zap.Uint("target_id", targetID), zap.Int("weight", weight))
	return r, nil
}

func createRelation(ctx context.Context, nodes repository.NodeRepository, relations repository.RelationRepository, sourceID, targetID uint, weight int) (*models.Relation, error) {
	var src, dst models.Node
	if err := nodes.GetByID(ctx, sourceID, &src); err != nil {
		return nil, domainError(err, ErrNodeNotFound, nil)
	}
	if err := nodes.GetByID(ctx, targetID, &dst); err != nil {
		return nil, domainError(err, ErrNodeNotFound, nil)
	}
	if !graph.ValidEdge(src.Layer, dst.Layer) {
		return nil, appErr.Wrap(ErrInvalidTopology, appErr.CodeInvalidTopology,
			fmt.Sprintf("relation %s -> %s is not allowed", src.Layer, dst.Layer))
	}
	if err := checkWeight(weight); err != nil {
		return nil, err
	}
	r := &models.Relation{SourceID: sourceID, TargetID: targetID, Weight: weight}
	if err := relations.Create(ctx, r); err != nil {
		return nil, domainError(err, nil, ErrDuplicateRelation)
	}
	return r, nil
}

func (s *graphService) UpdateRelationWeight(ctx context.Context, id uint, weight int) error {
	var r models.Relation
	if err := s.relations.GetByID(ctx, id, &r); err != nil {
		return domainError(err, ErrRelationNotFound, nil)
	}
	if err := checkWeight(weight); err != nil {
		return err
	}
	if err := s.relations.UpdateWeight(ctx, id, weight); err != nil {
		return domainError(err, ErrRelationNotFound, nil)
	}
	metrics.GraphMutations.WithLabelValues("update_relation").Inc()
	logger.L().Info("relation weight updated", zap.Uint("relation_id", id), zap.Int("weight", weight))
	return nil
}

func (s *graphService) DeleteRelation(ctx context.Context, id uint) error {
	if err := s.relations.Delete(ctx, id); err != nil {
		return domainError(err, ErrRelationNotFound, nil)
	}
	metrics.GraphMutations.WithLabelValues("delete_relation").Inc()
	logger.L().Info("relation deleted", zap.Uint("relation_id", id))
	return nil
}

func (s *graphService) GetFullGraph(ctx context.Context, courseID *uuid.UUID) (*GraphView, error) {
	snap, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return buildView(snap, func(n models.Node) *float64 { return n.Score }), nil
}

func (s *graphService) GetScoredGraph(ctx context.Context, courseID *uuid.UUID) (*GraphView, error) {
	snap, err := s.snapshot(ctx, courseID)
	if err != nil {
		return nil, err
	}
	scores := graph.Propagate(snap, classAverageLeaves(snap))
	return buildView(snap, func(n models.Node) *float64 {
		if n.Layer == models.LayerCourseContent {
			return n.Score
		}
		v := graph.Round2(scores.Of(n.ID))
		return &v
	}), nil
}

func (s *graphService) ListProgramOutcomes(ctx context.Context) ([]models.Node, error) {
	return s.nodes.List(ctx, repository.NodeFilter{Layers: []models.Layer{models.LayerProgramOutcome}})
}

// snapshot loads every program outcome plus the course content and course
// outcome nodes in scope, and the relations among them.
func (s *graphService) snapshot(ctx context.Context, courseID *uuid.UUID) (graph.Snapshot, error) {
	if err := requireCourse(ctx, s.courses, courseID); err != nil {
		return graph.Snapshot{}, err
	}
	return loadSnapshot(ctx, s.nodes, s.relations, courseID)
}

func loadSnapshot(ctx context.Context, nodes repository.NodeRepository, relations repository.RelationRepository, courseID *uuid.UUID) (graph.Snapshot, error) {
	scoped, err := nodes.List(ctx, repository.NodeFilter{
		Layers:   []models.Layer{models.LayerCourseContent, models.LayerCourseOutcome},
		CourseID: courseID,
	})
	if err != nil {
		return graph.Snapshot{}, err
	}
	pos, err := nodes.List(ctx, repository.NodeFilter{Layers: []models.Layer{models.LayerProgramOutcome}})
	if err != nil {
		return graph.Snapshot{}, err
	}
	all := append(scoped, pos...)
	ids := make([]uint, 0, len(all))
	for _, n := range all {
		ids = append(ids, n.ID)
	}
	rels, err := relations.ListAmong(ctx, ids)
	if err != nil {
		return graph.Snapshot{}, err
	}
	return graph.Snapshot{Nodes: all, Relations: rels}, nil
}

// classAverageLeaves uses the persisted course content scores.
func classAverageLeaves(snap graph.Snapshot) map[uint]float64 {
	leaves := make(map[uint]float64)
	for _, n := range snap.Nodes {
		if n.Layer == models.LayerCourseContent && n.Score != nil {
			leaves[n.ID] = *n.Score
		}
	}
	return leaves
}
