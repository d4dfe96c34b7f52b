package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/services"
)

type mockGraphService struct{ mock.Mock }

func (m *mockGraphService) CreateNode(ctx context.Context, input *services.CreateNodeInput) (*models.Node, error) {
	args := m.Called(ctx, input)
	n, _ := args.Get(0).(*models.Node)
	return n, args.Error(1)
}

func (m *mockGraphService) RenameNode(ctx context.Context, id uint, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockGraphService) DeleteNode(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGraphService) CreateRelation(ctx context.Context, sourceID, targetID uint, weight int) (*models.Relation, error) {
	args := m.Called(ctx, sourceID, targetID, weight)
	r, _ := args.Get(0).(*models.Relation)
	return r, args.Error(1)
}

func (m *mockGraphService) UpdateRelationWeight(ctx context.Context, id uint, weight int) error {
	return m.Called(ctx, id, weight).Error(0)
}

func (m *mockGraphService) DeleteRelation(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGraphService) GetFullGraph(ctx context.Context, courseID *uuid.UUID) (*services.GraphView, error) {
	args := m.Called(ctx, courseID)
	v, _ := args.Get(0).(*services.GraphView)
	return v, args.Error(1)
}

func (m *mockGraphService) GetScoredGraph(ctx context.Context, courseID *uuid.UUID) (*services.GraphView, error) {
	args := m.Called(ctx, courseID)
	v, _ := args.Get(0).(*services.GraphView)
	return v, args.Error(1)
}

func (m *mockGraphService) ListProgramOutcomes(ctx context.Context) ([]models.Node, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).([]models.Node)
	return n, args.Error(1)
}

type mockScoreService struct{ mock.Mock }

func (m *mockScoreService) ApplyScores(ctx context.Context, courseID *uuid.UUID, items []services.HeaderScore) (*services.GraphView, *services.ItemSummary, error) {
	args := m.Called(ctx, courseID, items)
	v, _ := args.Get(0).(*services.GraphView)
	s, _ := args.Get(1).(*services.ItemSummary)
	return v, s, args.Error(2)
}

func (m *mockScoreService) ResetScores(ctx context.Context, courseID *uuid.UUID) (*services.GraphView, error) {
	args := m.Called(ctx, courseID)
	v, _ := args.Get(0).(*services.GraphView)
	return v, args.Error(1)
}

func (m *mockScoreService) ImportStudentGrades(ctx context.Context, input *services.GradeImportInput) (*services.ItemSummary, error) {
	args := m.Called(ctx, input)
	s, _ := args.Get(0).(*services.ItemSummary)
	return s, args.Error(1)
}

func (m *mockScoreService) ComputeStudentResults(ctx context.Context, input *services.StudentResultsInput) (*services.StudentResults, error) {
	args := m.Called(ctx, input)
	r, _ := args.Get(0).(*services.StudentResults)
	return r, args.Error(1)
}

type mockSyllabusService struct{ mock.Mock }

func (m *mockSyllabusService) CreateDraft(ctx context.Context, courseID uuid.UUID, pdf []byte) (*models.SyllabusDraft, error) {
	args := m.Called(ctx, courseID, pdf)
	d, _ := args.Get(0).(*models.SyllabusDraft)
	return d, args.Error(1)
}

func (m *mockSyllabusService) GetDraft(ctx context.Context, id uuid.UUID) (*models.SyllabusDraft, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.SyllabusDraft)
	return d, args.Error(1)
}

func (m *mockSyllabusService) ApplySyllabusImport(ctx context.Context, input *services.SyllabusImportInput) (*services.SyllabusImportSummary, error) {
	args := m.Called(ctx, input)
	s, _ := args.Get(0).(*services.SyllabusImportSummary)
	return s, args.Error(1)
}

var (
	_ services.GraphService    = (*mockGraphService)(nil)
	_ services.ScoreService    = (*mockScoreService)(nil)
	_ services.SyllabusService = (*mockSyllabusService)(nil)
)
