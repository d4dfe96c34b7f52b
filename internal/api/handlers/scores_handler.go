package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/giraph/engine/internal/api/types"
	"github.com/giraph/engine/internal/ingest"
	"github.com/giraph/engine/internal/services"
	appErr "github.com/giraph/engine/pkg/errors"
	"github.com/giraph/engine/pkg/logger"
)

// StudentIDHeader is the spreadsheet column that identifies a student row.
const StudentIDHeader = "student_id"

type ScoresHandler struct {
	scores    services.ScoreService
	skip      ingest.Skipper
	maxUpload int64
	validate  Validator
}

func NewScoresHandler(scores services.ScoreService, skip ingest.Skipper, maxUpload int64, v Validator) *ScoresHandler {
	return &ScoresHandler{scores: scores, skip: skip, maxUpload: maxUpload, validate: v}
}

// UploadResult reports what a spreadsheet upload changed.
type UploadResult struct {
	Graph    *services.GraphView  `json:"graph"`
	Averages services.ItemSummary `json:"averages"`
	Students int                  `json:"students"`
	Grades   services.ItemSummary `json:"grades"`
}

func (h *ScoresHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req types.ApplyScoresRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	view, summary, err := h.scores.ApplyScores(r.Context(), req.CourseID, req.Scores)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, view, summary)
}

func (h *ScoresHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req types.ResetScoresRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	view, err := h.scores.ResetScores(r.Context(), req.CourseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, view, nil)
}

// Upload takes a multipart "file" (csv or xlsx) and an optional "course_id".
// Column averages are applied as class scores, then every row with a student
// id is stored as that student's grades.
func (h *ScoresHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeErrorStr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	courseID, err := courseParam(r.FormValue("course_id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, appErr.Wrap(err, appErr.CodeInvalid, "read upload"))
		return
	}
	sheet, err := ingest.Parse(header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}

	averages := ingest.ClassAverages(sheet, h.skip)
	items := make([]services.HeaderScore, 0, len(averages))
	for _, a := range averages {
		items = append(items, services.HeaderScore{Header: a.Header, Value: a.Value})
	}
	view, summary, err := h.scores.ApplyScores(r.Context(), courseID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	res := UploadResult{Graph: view, Averages: *summary}

	for _, row := range ingest.StudentRows(sheet, StudentIDHeader, h.skip) {
		grades := make([]services.HeaderScore, 0, len(row.Grades))
		for _, c := range row.Grades {
			grades = append(grades, services.HeaderScore{Header: c.Header, Value: *c.Number})
		}
		gs, err := h.scores.ImportStudentGrades(r.Context(), &services.GradeImportInput{
			StudentID: row.StudentID,
			CourseID:  courseID,
			Items:     grades,
		})
		if err != nil {
			logger.L().Warn("student grade import failed", zap.String("student_id", row.StudentID), zap.Error(err))
			continue
		}
		res.Students++
		res.Grades.Applied += gs.Applied
		res.Grades.Skipped += gs.Skipped
		res.Grades.Filtered += gs.Filtered
	}
	writeOK(w, r, http.StatusOK, res, nil)
}

func (h *ScoresHandler) StudentResults(w http.ResponseWriter, r *http.Request) {
	var req types.StudentResultsRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	res, err := h.scores.ComputeStudentResults(r.Context(), &services.StudentResultsInput{
		StudentID: chi.URLParam(r, "student_id"),
		CourseID:  req.CourseID,
		Overrides: req.Overrides,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, res, nil)
}

func (h *ScoresHandler) StudentGrades(w http.ResponseWriter, r *http.Request) {
	var req types.StudentGradesRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	summary, err := h.scores.ImportStudentGrades(r.Context(), &services.GradeImportInput{
		StudentID: chi.URLParam(r, "student_id"),
		CourseID:  req.CourseID,
		Items:     req.Scores,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, summary, nil)
}
