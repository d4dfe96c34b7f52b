package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/giraph/engine/internal/api/types"
	"github.com/giraph/engine/internal/graph"
	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/services"
	appErr "github.com/giraph/engine/pkg/errors"
	"github.com/giraph/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	_, _ = logger.Init("error", "json")
	code := m.Run()
	logger.Sync()
	os.Exit(code)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *types.APIError `json:"error"`
	Meta    *struct {
		Summary json.RawMessage `json:"summary"`
	} `json:"meta"`
}

func serve(t *testing.T, h http.Handler, method, target string, body []byte, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func graphRouter(gs services.GraphService) http.Handler {
	h := NewGraphHandler(gs, validator.New())
	r := chi.NewRouter()
	r.Get("/graph", h.Get)
	r.Get("/program-outcomes", h.ListProgramOutcomes)
	r.Post("/nodes", h.CreateNode)
	r.Patch("/nodes/{id}", h.RenameNode)
	r.Delete("/nodes/{id}", h.DeleteNode)
	r.Post("/relations", h.CreateRelation)
	r.Patch("/relations/{id}", h.UpdateRelation)
	r.Delete("/relations/{id}", h.DeleteRelation)
	return r
}

func TestGraphHandler_Get(t *testing.T) {
	gs := new(mockGraphService)
	course := uuid.New()
	score := 95.0
	view := &services.GraphView{
		CourseContents:  []services.NodeView{},
		CourseOutcomes:  []services.NodeView{{ID: 2, Name: "CO1", Relations: []services.RelationStub{}, Score: &score}},
		ProgramOutcomes: []services.NodeView{},
	}
	gs.On("GetScoredGraph", mock.Anything, &course).Return(view, nil).Once()
	gs.On("GetFullGraph", mock.Anything, (*uuid.UUID)(nil)).Return(&services.GraphView{}, nil).Once()

	rr, env := serve(t, graphRouter(gs), http.MethodGet, "/graph?scored=true&course_id="+course.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got services.GraphView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.CourseOutcomes, 1)
	assert.Equal(t, 95.0, *got.CourseOutcomes[0].Score)

	rr, _ = serve(t, graphRouter(gs), http.MethodGet, "/graph", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(t, graphRouter(gs), http.MethodGet, "/graph?course_id=nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	gs.AssertExpectations(t)
}

func TestGraphHandler_CreateNode(t *testing.T) {
	course := uuid.New()
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "created", body: `{"name":"Midterm","layer":"course_content","course_id":"` + course.String() + `"}`, status: http.StatusCreated},
		{name: "bad layer", body: `{"name":"x","layer":"nope"}`, status: http.StatusUnprocessableEntity, code: "invalid"},
		{name: "missing name", body: `{"layer":"course_outcome"}`, status: http.StatusUnprocessableEntity, code: "invalid"},
		{name: "bad json", body: `{`, status: http.StatusBadRequest, code: "invalid"},
		{
			name:   "duplicate",
			body:   `{"name":"PO1","layer":"program_outcome"}`,
			err:    appErr.Wrap(services.ErrDuplicateNode, appErr.CodeConflict, "node already exists"),
			status: http.StatusConflict,
			code:   "conflict",
		},
		{
			name:   "unknown course",
			body:   `{"name":"CO1","layer":"course_outcome","course_id":"` + course.String() + `"}`,
			err:    appErr.Wrap(services.ErrCourseNotFound, appErr.CodeNotFound, "course not found"),
			status: http.StatusNotFound,
			code:   "not_found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gs := new(mockGraphService)
			var node *models.Node
			if tc.err == nil {
				node = &models.Node{ID: 7, Name: "Midterm", Layer: models.LayerCourseContent}
			}
			gs.On("CreateNode", mock.Anything, mock.AnythingOfType("*services.CreateNodeInput")).Return(node, tc.err).Maybe()

			rr, env := serve(t, graphRouter(gs), http.MethodPost, "/nodes", []byte(tc.body), "")
			assert.Equal(t, tc.status, rr.Code)
			if tc.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tc.code, env.Error.Code)
			}
		})
	}
}

func TestGraphHandler_Relations(t *testing.T) {
	gs := new(mockGraphService)
	gs.On("CreateRelation", mock.Anything, uint(1), uint(2), 3).
		Return(&models.Relation{ID: 9, SourceID: 1, TargetID: 2, Weight: 3}, nil).Once()
	gs.On("CreateRelation", mock.Anything, uint(1), uint(3), 3).
		Return(nil, appErr.Wrap(services.ErrInvalidTopology, appErr.CodeInvalidTopology, "course content may only link to a course outcome")).Once()
	gs.On("UpdateRelationWeight", mock.Anything, uint(9), 5).Return(nil).Once()
	gs.On("DeleteRelation", mock.Anything, uint(9)).Return(nil).Once()
	gs.On("DeleteRelation", mock.Anything, uint(10)).
		Return(appErr.Wrap(services.ErrRelationNotFound, appErr.CodeNotFound, "relation 10 not found")).Once()
	r := graphRouter(gs)

	rr, _ := serve(t, r, http.MethodPost, "/relations", []byte(`{"node1_id":1,"node2_id":2,"weight":3}`), "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr, env := serve(t, r, http.MethodPost, "/relations", []byte(`{"node1_id":1,"node2_id":3,"weight":3}`), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_topology", env.Error.Code)

	rr, _ = serve(t, r, http.MethodPatch, "/relations/9", []byte(`{"weight":5}`), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = serve(t, r, http.MethodDelete, "/relations/9", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = serve(t, r, http.MethodDelete, "/relations/10", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = serve(t, r, http.MethodDelete, "/relations/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	gs.AssertExpectations(t)
}

func TestGraphHandler_Nodes(t *testing.T) {
	gs := new(mockGraphService)
	gs.On("RenameNode", mock.Anything, uint(4), "Final").Return(nil).Once()
	gs.On("DeleteNode", mock.Anything, uint(4)).Return(nil).Once()
	gs.On("ListProgramOutcomes", mock.Anything).Return([]models.Node{{ID: 1, Name: "PO1"}}, nil).Once()
	r := graphRouter(gs)

	rr, _ := serve(t, r, http.MethodPatch, "/nodes/4", []byte(`{"name":"Final"}`), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr, _ = serve(t, r, http.MethodDelete, "/nodes/4", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr, env := serve(t, r, http.MethodGet, "/program-outcomes", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), "PO1")
	gs.AssertExpectations(t)
}

func scoresRouter(ss services.ScoreService) http.Handler {
	skip := graph.NewHeaderFilter([]string{"student_id"}, []string{"harf"})
	h := NewScoresHandler(ss, skip, 1<<20, validator.New())
	r := chi.NewRouter()
	r.Post("/scores/apply", h.Apply)
	r.Post("/scores/reset", h.Reset)
	r.Post("/scores/upload", h.Upload)
	r.Post("/students/{student_id}/results", h.StudentResults)
	r.Post("/students/{student_id}/grades", h.StudentGrades)
	return r
}

func TestScoresHandler_Apply(t *testing.T) {
	ss := new(mockScoreService)
	course := uuid.New()
	want := []services.HeaderScore{{Header: "Exam", Value: 90}, {Header: "Quiz", Value: 70}}
	ss.On("ApplyScores", mock.Anything, &course, want).
		Return(&services.GraphView{}, &services.ItemSummary{Applied: 2}, nil).Once()

	body := `{"course_id":"` + course.String() + `","scores":{"Exam":90,"Quiz":70}}`
	rr, env := serve(t, scoresRouter(ss), http.MethodPost, "/scores/apply", []byte(body), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotNil(t, env.Meta)
	assert.JSONEq(t, `{"applied":2,"skipped":0,"filtered":0}`, string(env.Meta.Summary))

	rr, _ = serve(t, scoresRouter(ss), http.MethodPost, "/scores/apply", []byte(`{}`), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	ss.AssertExpectations(t)
}

func TestScoresHandler_Reset(t *testing.T) {
	ss := new(mockScoreService)
	ss.On("ResetScores", mock.Anything, (*uuid.UUID)(nil)).Return(&services.GraphView{}, nil).Once()
	rr, _ := serve(t, scoresRouter(ss), http.MethodPost, "/scores/reset", []byte(`{}`), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	ss.AssertExpectations(t)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestScoresHandler_Upload(t *testing.T) {
	ss := new(mockScoreService)
	course := uuid.New()
	csv := "student_id,Exam,Harf Notu,Quiz\n1001,80,BA,60\n1002.0,100,AA,\n"

	ss.On("ApplyScores", mock.Anything, &course, []services.HeaderScore{
		{Header: "Exam", Value: 90},
		{Header: "Quiz", Value: 60},
	}).Return(&services.GraphView{}, &services.ItemSummary{Applied: 2}, nil).Once()
	ss.On("ImportStudentGrades", mock.Anything, mock.MatchedBy(func(in *services.GradeImportInput) bool {
		return in.StudentID == "1001" && len(in.Items) == 2
	})).Return(&services.ItemSummary{Applied: 2}, nil).Once()
	ss.On("ImportStudentGrades", mock.Anything, mock.MatchedBy(func(in *services.GradeImportInput) bool {
		return in.StudentID == "1002" && len(in.Items) == 1 && in.Items[0].Value == 100
	})).Return(&services.ItemSummary{Applied: 1}, nil).Once()

	body, ct := multipartBody(t, map[string]string{"course_id": course.String()}, "grades.csv", []byte(csv))
	rr, env := serve(t, scoresRouter(ss), http.MethodPost, "/scores/upload", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Students)
	assert.Equal(t, 3, res.Grades.Applied)
	assert.Equal(t, 2, res.Averages.Applied)
	ss.AssertExpectations(t)
}

func TestScoresHandler_UploadRejects(t *testing.T) {
	ss := new(mockScoreService)

	body, ct := multipartBody(t, nil, "grades.txt", []byte("a,b\n1,2\n"))
	rr, _ := serve(t, scoresRouter(ss), http.MethodPost, "/scores/upload", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	body, ct = multipartBody(t, nil, "", nil)
	rr, _ = serve(t, scoresRouter(ss), http.MethodPost, "/scores/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	big := strings.Repeat("x", 2<<20)
	body, ct = multipartBody(t, nil, "grades.csv", []byte(big))
	rr, _ = serve(t, scoresRouter(ss), http.MethodPost, "/scores/upload", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	ss.AssertNotCalled(t, "ApplyScores", mock.Anything, mock.Anything, mock.Anything)
}

func TestScoresHandler_Students(t *testing.T) {
	ss := new(mockScoreService)
	ss.On("ComputeStudentResults", mock.Anything, mock.MatchedBy(func(in *services.StudentResultsInput) bool {
		return in.StudentID == "s-1" && in.Overrides["Exam"] == 70
	})).Return(&services.StudentResults{StudentID: "s-1"}, nil).Once()
	ss.On("ImportStudentGrades", mock.Anything, mock.MatchedBy(func(in *services.GradeImportInput) bool {
		return in.StudentID == "s-1" && len(in.Items) == 1
	})).Return(&services.ItemSummary{Applied: 1}, nil).Once()
	ss.On("ImportStudentGrades", mock.Anything, mock.MatchedBy(func(in *services.GradeImportInput) bool {
		return in.StudentID == "s-2"
	})).Return(nil, appErr.Wrap(services.ErrCourseNotFound, appErr.CodeNotFound, "course not found")).Once()
	r := scoresRouter(ss)

	rr, env := serve(t, r, http.MethodPost, "/students/s-1/results", []byte(`{"overrides":{"Exam":70}}`), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"s-1"`)

	rr, _ = serve(t, r, http.MethodPost, "/students/s-1/grades", []byte(`{"scores":[{"header":"Exam","value":88}]}`), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(t, r, http.MethodPost, "/students/s-2/grades", []byte(`{"scores":{"Exam":1}}`), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	ss.AssertExpectations(t)
}

func syllabusRouter(sy services.SyllabusService) http.Handler {
	h := NewSyllabusHandler(sy, validator.New())
	r := chi.NewRouter()
	r.Post("/syllabus/drafts", h.CreateDraft)
	r.Get("/syllabus/drafts/{id}", h.GetDraft)
	r.Post("/syllabus/import", h.Import)
	return r
}

func TestSyllabusHandler(t *testing.T) {
	sy := new(mockSyllabusService)
	course := uuid.New()
	draftID := uuid.New()
	pdf := []byte("%PDF-1.4 test")

	sy.On("CreateDraft", mock.Anything, course, pdf).
		Return(&models.SyllabusDraft{ID: draftID, CourseID: course, Status: models.DraftStatusPending}, nil).Once()
	sy.On("GetDraft", mock.Anything, draftID).
		Return(&models.SyllabusDraft{ID: draftID, Status: models.DraftStatusReady}, nil).Once()
	sy.On("ApplySyllabusImport", mock.Anything, mock.MatchedBy(func(in *services.SyllabusImportInput) bool {
		return in.CourseID == course && len(in.Relations) == 1 && in.Relations[0].Weight == 4
	})).Return(&services.SyllabusImportSummary{NodesCreated: 2, RelationsCreated: 1}, nil).Once()
	r := syllabusRouter(sy)

	body, ct := multipartBody(t, map[string]string{"course_id": course.String()}, "syllabus.pdf", pdf)
	rr, env := serve(t, r, http.MethodPost, "/syllabus/drafts", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Contains(t, string(env.Data), `"pending"`)

	rr, _ = serve(t, r, http.MethodGet, "/syllabus/drafts/"+draftID.String(), nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	imp := `{"course_id":"` + course.String() + `","course_contents":["Midterm"],"course_outcomes":["CO1"],` +
		`"relations":[{"course_content_index":0,"course_outcome_index":0,"weight":4}]}`
	rr, env = serve(t, r, http.MethodPost, "/syllabus/import", []byte(imp), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"nodes_created":2`)

	rr, _ = serve(t, r, http.MethodPost, "/syllabus/import", []byte(`{"course_contents":[]}`), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	sy.AssertExpectations(t)
}

func TestSyllabusHandler_Unavailable(t *testing.T) {
	sy := new(mockSyllabusService)
	course := uuid.New()
	sy.On("CreateDraft", mock.Anything, course, mock.Anything).
		Return(nil, appErr.New(appErr.CodeUnavailable, "syllabus extraction is not configured")).Once()

	body, ct := multipartBody(t, map[string]string{"course_id": course.String()}, "s.pdf", []byte("%PDF"))
	rr, env := serve(t, syllabusRouter(sy), http.MethodPost, "/syllabus/drafts", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", env.Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"db": func(context.Context) error { return nil }})
	rr, _ := serve(t, http.HandlerFunc(h.Liveness), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = serve(t, http.HandlerFunc(h.Readiness), http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	down := NewHealthHandler(map[string]Pinger{"db": func(context.Context) error { return errors.New("refused") }})
	rr, env := serve(t, http.HandlerFunc(down.Readiness), http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", env.Error.Code)
}
