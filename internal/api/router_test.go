package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giraph/engine/internal/api/handlers"
	mw "github.com/giraph/engine/internal/api/middleware"
	"github.com/giraph/engine/internal/graph"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/services"
	"github.com/giraph/engine/internal/testutil"
	"github.com/giraph/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	_, _ = logger.Init("error", "json")
	code := m.Run()
	logger.Sync()
	os.Exit(code)
}

var secret = []byte("router-secret")

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.NewDB(t)
	nodes := repository.NewNodeRepository(db)
	relations := repository.NewRelationRepository(db)
	courses, err := repository.NewCachedCourseDirectory(repository.NewCourseRepository(db), 16)
	require.NoError(t, err)
	filter := graph.NewHeaderFilter([]string{"student_id"}, nil)
	graphs := services.NewGraphService(db, nodes, relations, courses)
	scores := services.NewScoreService(db, nodes, relations,
		repository.NewContentRepository(db), repository.NewGradeRepository(db), courses, graphs, filter)
	syllabi := services.NewSyllabusService(db, nodes, relations, repository.NewDraftRepository(db), courses, nil, nil)

	v := validator.New()
	return NewRouter(Dependencies{
		HMACSecret:     secret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Health:         handlers.NewHealthHandler(map[string]handlers.Pinger{"noop": func(context.Context) error { return nil }}),
		Graph:          handlers.NewGraphHandler(graphs, v),
		Scores:         handlers.NewScoresHandler(scores, filter, 1<<20, v),
		Syllabus:       handlers.NewSyllabusHandler(syllabi, v),
	})
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "role": role}).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + s
}

func TestRouter(t *testing.T) {
	r := newRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil)
	req.Header.Set("Authorization", token(t, "student"))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil)
	req.Header.Set("Authorization", token(t, mw.RoleLecturer))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"course_contents":[],"course_outcomes":[],"program_outcomes":[]}}`, rr.Body.String())
}
