package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/extractor"
	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/queue/tasks"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/storage/blob"
	appErr "github.com/giraph/engine/pkg/errors"
	"github.com/giraph/engine/pkg/logger"
	"github.com/giraph/engine/pkg/metrics"
)

// SyllabusService stages extracted syllabus candidates and commits reviewed
// structure to the graph.
type SyllabusService interface {
	// CreateDraft stores the PDF and queues extraction. The graph is untouched.
	CreateDraft(ctx context.Context, courseID uuid.UUID, pdf []byte) (*models.SyllabusDraft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*models.SyllabusDraft, error)
	// ApplySyllabusImport creates missing nodes and creates or reweights the
	// referenced relations. Each name and each relation is applied atomically;
	// bad items are skipped and counted.
	ApplySyllabusImport(ctx context.Context, input *SyllabusImportInput) (*SyllabusImportSummary, error)
}

// Enqueuer is the part of *asynq.Client the service needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type SyllabusImportInput struct {
	CourseID       uuid.UUID          `json:"course_id"`
	CourseContents []string           `json:"course_contents"`
	CourseOutcomes []string           `json:"course_outcomes"`
	Relations      []SyllabusRelation `json:"relations"`
}

// SyllabusRelation references a course content and a course outcome by their
// position in the import lists.
type SyllabusRelation struct {
	ContentIndex int `json:"course_content_index"`
	OutcomeIndex int `json:"course_outcome_index"`
	Weight       int `json:"weight"`
}

type SyllabusImportSummary struct {
	NodesCreated     int `json:"nodes_created"`
	NodesExisting    int `json:"nodes_existing"`
	NodesSkipped     int `json:"nodes_skipped"`
	RelationsCreated int `json:"relations_created"`
	RelationsUpdated int `json:"relations_updated"`
	RelationsSkipped int `json:"relations_skipped"`
}

type syllabusService struct {
	db        *gorm.DB
	nodes     repository.NodeRepository
	relations repository.RelationRepository
	drafts    repository.DraftRepository
	courses   repository.CourseDirectory
	blobs     blob.Store
	queue     Enqueuer
}

// NewSyllabusService wires the service. blobs and queue may be nil, in which
// case CreateDraft reports the feature as unavailable.
func NewSyllabusService(
	db *gorm.DB,
	nodes repository.NodeRepository,
	relations repository.RelationRepository,
	drafts repository.DraftRepository,
	courses repository.CourseDirectory,
	blobs blob.Store,
	queue Enqueuer,
) SyllabusService {
	return &syllabusService{db: db, nodes: nodes, relations: relations, drafts: drafts, courses: courses, blobs: blobs, queue: queue}
}

var _ SyllabusService = (*syllabusService)(nil)

func (s *syllabusService) CreateDraft(ctx context.Context, courseID uuid.UUID, pdf []byte) (*models.SyllabusDraft, error) {
	if s.blobs == nil || s.queue == nil {
		return nil, appErr.New(appErr.CodeUnavailable, "syllabus extraction is not configured")
	}
	if len(pdf) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "empty syllabus file")
	}
	if len(pdf) > extractor.MaxPDFBytes {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("syllabus exceeds %d MB", extractor.MaxPDFBytes>>20))
	}
	if err := requireCourse(ctx, s.courses, &courseID); err != nil {
		return nil, err
	}

	d := &models.SyllabusDraft{ID: uuid.New(), CourseID: courseID, Status: models.DraftStatusPending}
	d.SourceKey = fmt.Sprintf("syllabi/%s/%s.pdf", courseID, d.ID)
	if err := s.blobs.Put(ctx, d.SourceKey, pdf, "application/pdf"); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "store syllabus file failed")
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, err
	}

	task, err := tasks.NewSyllabusExtractTask(d.ID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "build extraction task failed")
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		logger.L().Error("enqueue syllabus task failed", zap.Error(err), zap.String("draft_id", d.ID.String()))
		_ = s.drafts.MarkFailed(ctx, d.ID, "enqueue failed")
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue extraction task failed")
	}

	logger.L().Info("syllabus draft created", zap.String("draft_id", d.ID.String()), zap.String("course_id", courseID.String()))
	return d, nil
}

func (s *syllabusService) GetDraft(ctx context.Context, id uuid.UUID) (*models.SyllabusDraft, error) {
	var d models.SyllabusDraft
	if err := s.drafts.GetByID(ctx, id, &d); err != nil {
		return nil, domainError(err, ErrDraftNotFound, nil)
	}
	return &d, nil
}

func (s *syllabusService) ApplySyllabusImport(ctx context.Context, input *SyllabusImportInput) (*SyllabusImportSummary, error) {
	courseID := input.CourseID
	if err := requireCourse(ctx, s.courses, &courseID); err != nil {
		return nil, err
	}

	summary := &SyllabusImportSummary{}
	ccIDs := s.ensureNodes(ctx, input.CourseContents, models.LayerCourseContent, courseID, summary)
	coIDs := s.ensureNodes(ctx, input.CourseOutcomes, models.LayerCourseOutcome, courseID, summary)

	for _, rel := range input.Relations {
		src, okSrc := indexed(ccIDs, rel.ContentIndex)
		dst, okDst := indexed(coIDs, rel.OutcomeIndex)
		if !okSrc || !okDst {
			summary.RelationsSkipped++
			continue
		}
		created, err := s.upsertRelation(ctx, src, dst, models.ClampWeight(rel.Weight))
		switch {
		case err != nil:
			logger.L().Debug("syllabus relation skipped", zap.Uint("source_id", src), zap.Uint("target_id", dst), zap.Error(err))
			summary.RelationsSkipped++
		case created:
			summary.RelationsCreated++
		default:
			summary.RelationsUpdated++
		}
	}

	logger.L().Info("syllabus import applied",
		zap.String("course_id", courseID.String()),
		zap.Int("nodes_created", summary.NodesCreated),
		zap.Int("relations_created", summary.RelationsCreated),
		zap.Int("relations_updated", summary.RelationsUpdated),
		zap.Int("relations_skipped", summary.RelationsSkipped))
	return summary, nil
}

// ensureNodes returns node ids aligned with names; 0 marks a name that could
// not be stored.
func (s *syllabusService) ensureNodes(ctx context.Context, names []string, layer models.Layer, courseID uuid.UUID, summary *SyllabusImportSummary) []uint {
	ids := make([]uint, len(names))
	for i, raw := range names {
		name, err := cleanName(raw)
		if err != nil {
			summary.NodesSkipped++
			continue
		}
		n, created, err := s.ensureNode(ctx, name, layer, courseID)
		if err != nil {
			logger.L().Debug("syllabus node skipped", zap.String("name", name), zap.Error(err))
			summary.NodesSkipped++
			continue
		}
		ids[i] = n.ID
		if created {
			summary.NodesCreated++
		} else {
			summary.NodesExisting++
		}
	}
	return ids
}

func (s *syllabusService) ensureNode(ctx context.Context, name string, layer models.Layer, courseID uuid.UUID) (*models.Node, bool, error) {
	scope := models.ScopeFor(&courseID)
	var existing models.Node
	err := s.nodes.FindByKey(ctx, name, layer, scope, &existing)
	if err == nil {
		return &existing, false, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, false, err
	}

	n := models.NewNode(name, layer, &courseID)
	if err := s.nodes.Create(ctx, n); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			// lost a race with another writer; use theirs
			if err := s.nodes.FindByKey(ctx, name, layer, scope, &existing); err == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}
	metrics.GraphMutations.WithLabelValues("create_node").Inc()
	return n, true, nil
}

func (s *syllabusService) upsertRelation(ctx context.Context, src, dst uint, weight int) (bool, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}
	relations := s.relations.WithTx(tx)

	var existing models.Relation
	err := relations.GetByPair(ctx, src, dst, &existing)
	created := false
	switch {
	case err == nil:
		err = relations.UpdateWeight(ctx, existing.ID, weight)
	case appErr.IsCode(err, appErr.CodeNotFound):
		_, err = createRelation(ctx, s.nodes.WithTx(tx), relations, src, dst, weight)
		created = true
	}
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return false, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	if created {
		metrics.GraphMutations.WithLabelValues("create_relation").Inc()
	} else {
		metrics.GraphMutations.WithLabelValues("update_relation").Inc()
	}
	return created, nil
}

func indexed(ids []uint, i int) (uint, bool) {
	if i < 0 || i >= len(ids) || ids[i] == 0 {
		return 0, false
	}
	return ids[i], true
}
