package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/giraph/engine/internal/extractor"
	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/storage/blob"
	appErr "github.com/giraph/engine/pkg/errors"
	"github.com/giraph/engine/pkg/logger"
	"github.com/giraph/engine/pkg/metrics"
)

// TypeSyllabusExtract is the asynq task type for syllabus extraction.
const TypeSyllabusExtract = "syllabus:extract"

// SyllabusPayload is the task payload for extraction tasks.
type SyllabusPayload struct {
	DraftID string `json:"draft_id"`
}

// NewSyllabusExtractTask builds the extraction task for a draft.
func NewSyllabusExtractTask(draftID uuid.UUID) (*asynq.Task, error) {
	b, err := json.Marshal(SyllabusPayload{DraftID: draftID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyllabusExtract, b, asynq.MaxRetry(3), asynq.Timeout(3*time.Minute)), nil
}

// SyllabusTaskHandler runs extraction and records candidates on the draft.
// It never writes to the graph.
type SyllabusTaskHandler struct {
	extractor extractor.Extractor
	blobs     blob.Store
	drafts    repository.DraftRepository
}

func NewSyllabusTaskHandler(ex extractor.Extractor, blobs blob.Store, drafts repository.DraftRepository) *SyllabusTaskHandler {
	return &SyllabusTaskHandler{extractor: ex, blobs: blobs, drafts: drafts}
}

func (h *SyllabusTaskHandler) HandleExtract(ctx context.Context, t *asynq.Task) error {
	var p SyllabusPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid syllabus task payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.DraftID)
	if err != nil {
		logger.L().Error("invalid draft id in task", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	var d models.SyllabusDraft
	if err := h.drafts.GetByID(ctx, id, &d); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			logger.L().Warn("syllabus draft gone", zap.String("draft_id", id.String()))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if d.Status != models.DraftStatusPending {
		logger.L().Info("syllabus draft already processed", zap.String("draft_id", id.String()), zap.String("status", d.Status))
		return nil
	}

	logger.L().Info("handling syllabus extraction", zap.String("draft_id", id.String()))

	pdf, err := h.blobs.Get(ctx, d.SourceKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return h.fail(ctx, id, "syllabus file missing")
		}
		return h.retryOrFail(ctx, id, err)
	}

	res, err := h.extractor.Extract(ctx, pdf)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeInvalid) {
			return h.fail(ctx, id, err.Error())
		}
		return h.retryOrFail(ctx, id, err)
	}

	b, err := json.Marshal(extractor.Clean(res))
	if err != nil {
		return h.fail(ctx, id, "encode candidates failed")
	}
	if err := h.drafts.MarkReady(ctx, id, datatypes.JSON(b)); err != nil {
		logger.L().Error("mark draft ready failed", zap.Error(err), zap.String("draft_id", id.String()))
		return err
	}
	metrics.SyllabusExtractions.WithLabelValues(models.DraftStatusReady).Inc()
	logger.L().Info("syllabus extraction completed", zap.String("draft_id", id.String()))
	return nil
}

// retryOrFail hands the error back to asynq while retries remain, then marks
// the draft failed.
func (h *SyllabusTaskHandler) retryOrFail(ctx context.Context, id uuid.UUID, cause error) error {
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if ok1 && ok2 && retried < maxRetry {
		logger.L().Warn("syllabus extraction attempt failed", zap.Error(cause), zap.String("draft_id", id.String()), zap.Int("retry", retried))
		return cause
	}
	return h.fail(ctx, id, cause.Error())
}

func (h *SyllabusTaskHandler) fail(ctx context.Context, id uuid.UUID, reason string) error {
	logger.L().Error("syllabus extraction failed", zap.String("draft_id", id.String()), zap.String("reason", reason))
	metrics.SyllabusExtractions.WithLabelValues(models.DraftStatusFailed).Inc()
	if err := h.drafts.MarkFailed(ctx, id, reason); err != nil {
		return err
	}
	return nil
}
