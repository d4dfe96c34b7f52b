package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/queue/tasks"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/testutil"
	appErr "github.com/giraph/engine/pkg/errors"
)

func TestApplySyllabusImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := testutil.NewCourse(t, env.db, "CS101")
	env.node(t, "Midterm", models.LayerCourseContent, course)

	input := &SyllabusImportInput{
		CourseID:       course.ID,
		CourseContents: []string{"Midterm", "Final", "  ", "Final"},
		CourseOutcomes: []string{"Analyze", "Design"},
		Relations: []SyllabusRelation{
			{ContentIndex: 0, OutcomeIndex: 0, Weight: 9},
			{ContentIndex: 1, OutcomeIndex: 1, Weight: 0},
			{ContentIndex: 2, OutcomeIndex: 0, Weight: 3},
			{ContentIndex: 7, OutcomeIndex: 0, Weight: 3},
			{ContentIndex: 0, OutcomeIndex: -1, Weight: 3},
		},
	}
	summary, err := env.syllabus.ApplySyllabusImport(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, SyllabusImportSummary{
		NodesCreated:     3,
		NodesExisting:    2,
		NodesSkipped:     1,
		RelationsCreated: 2,
		RelationsSkipped: 3,
	}, *summary)

	view, err := env.graphs.GetFullGraph(ctx, &course.ID)
	require.NoError(t, err)
	require.Len(t, view.CourseContents, 2)
	require.Len(t, view.CourseOutcomes, 2)
	weights := map[string]int{}
	for _, cc := range view.CourseContents {
		for _, r := range cc.Relations {
			weights[cc.Name] = r.Weight
		}
	}
	assert.Equal(t, map[string]int{"Midterm": 5, "Final": 1}, weights)

	// a second pass reweights instead of duplicating
	input.Relations = []SyllabusRelation{{ContentIndex: 0, OutcomeIndex: 0, Weight: 2}}
	summary, err = env.syllabus.ApplySyllabusImport(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NodesCreated)
	assert.Equal(t, 1, summary.RelationsUpdated)

	view, err = env.graphs.GetFullGraph(ctx, &course.ID)
	require.NoError(t, err)
	assert.Len(t, view.CourseContents, 2)
	assert.Equal(t, 2, view.CourseContents[0].Relations[0].Weight)

	_, err = env.syllabus.ApplySyllabusImport(ctx, &SyllabusImportInput{CourseID: uuid.New()})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCreateDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := testutil.NewCourse(t, env.db, "CS101")

	d, err := env.syllabus.CreateDraft(ctx, course.ID, []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPending, d.Status)

	stored, err := env.blobs.Get(ctx, d.SourceKey)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(stored))

	require.Len(t, env.queue.tasks, 1)
	assert.Equal(t, tasks.TypeSyllabusExtract, env.queue.tasks[0].Type())
	var p tasks.SyllabusPayload
	require.NoError(t, json.Unmarshal(env.queue.tasks[0].Payload(), &p))
	assert.Equal(t, d.ID.String(), p.DraftID)

	got, err := env.syllabus.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, got.CourseID)

	// extraction must not touch the graph
	view, err := env.graphs.GetFullGraph(ctx, &course.ID)
	require.NoError(t, err)
	assert.Empty(t, view.CourseContents)

	_, err = env.syllabus.GetDraft(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDraftNotFound)

	_, err = env.syllabus.CreateDraft(ctx, course.ID, nil)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestCreateDraft_EnqueueFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := testutil.NewCourse(t, env.db, "CS101")
	env.queue.err = errors.New("redis down")

	_, err := env.syllabus.CreateDraft(ctx, course.ID, []byte("%PDF"))
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	drafts, err := repository.NewDraftRepository(env.db).ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, models.DraftStatusFailed, drafts[0].Status)
}

func TestCreateDraft_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSyllabusService(env.db, env.nodes, nil, nil, nil, nil, nil)
	_, err := svc.CreateDraft(context.Background(), uuid.New(), []byte("%PDF"))
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}
