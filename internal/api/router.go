package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giraph/engine/internal/api/handlers"
	mw "github.com/giraph/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret     []byte
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	Health   *handlers.HealthHandler
	Graph    *handlers.GraphHandler
	Scores   *handlers.ScoresHandler
	Syllabus *handlers.SyllabusHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins))
	r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	r.Use(chimid.Compress(5))

	// Health and metrics
	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.Auth(dep.HMACSecret))
		api.Use(mw.RequireRole(mw.RoleLecturer, mw.RoleDepartmentHead, mw.RoleAdmin))

		api.Get("/graph", dep.Graph.Get)
		api.Get("/program-outcomes", dep.Graph.ListProgramOutcomes)

		api.Route("/nodes", func(nr chi.Router) {
			nr.Post("/", dep.Graph.CreateNode)
			nr.Patch("/{id}", dep.Graph.RenameNode)
			nr.Delete("/{id}", dep.Graph.DeleteNode)
		})

		api.Route("/relations", func(rr chi.Router) {
			rr.Post("/", dep.Graph.CreateRelation)
			rr.Patch("/{id}", dep.Graph.UpdateRelation)
			rr.Delete("/{id}", dep.Graph.DeleteRelation)
		})

		api.Route("/scores", func(sr chi.Router) {
			sr.Post("/apply", dep.Scores.Apply)
			sr.Post("/reset", dep.Scores.Reset)
			sr.Post("/upload", dep.Scores.Upload)
		})

		api.Route("/students/{student_id}", func(st chi.Router) {
			st.Post("/results", dep.Scores.StudentResults)
			st.Post("/grades", dep.Scores.StudentGrades)
		})

		api.Route("/syllabus", func(sy chi.Router) {
			sy.Post("/drafts", dep.Syllabus.CreateDraft)
			sy.Get("/drafts/{id}", dep.Syllabus.GetDraft)
			sy.Post("/import", dep.Syllabus.Import)
		})
	})

	return r
}
