package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/giraph/engine/internal/api/types"
	"github.com/giraph/engine/internal/extractor"
	"github.com/giraph/engine/internal/services"
	appErr "github.com/giraph/engine/pkg/errors"
)

type SyllabusHandler struct {
	syllabi  services.SyllabusService
	validate Validator
}

func NewSyllabusHandler(syllabi services.SyllabusService, v Validator) *SyllabusHandler {
	return &SyllabusHandler{syllabi: syllabi, validate: v}
}

// CreateDraft stages a multipart "file" PDF for extraction into "course_id".
func (h *SyllabusHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	limit := int64(extractor.MaxPDFBytes) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "syllabus too large")
			return
		}
		writeErrorStr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	courseID, err := uuid.Parse(r.FormValue("course_id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid course_id")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	pdf, err := io.ReadAll(file)
	if err != nil {
		writeError(w, appErr.Wrap(err, appErr.CodeInvalid, "read upload"))
		return
	}
	draft, err := h.syllabi.CreateDraft(r.Context(), courseID, pdf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusAccepted, draft, nil)
}

func (h *SyllabusHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	draft, err := h.syllabi.GetDraft(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, draft, nil)
}

func (h *SyllabusHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req types.SyllabusImportRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	summary, err := h.syllabi.ApplySyllabusImport(r.Context(), &services.SyllabusImportInput{
		CourseID:       req.CourseID,
		CourseContents: req.CourseContents,
		CourseOutcomes: req.CourseOutcomes,
		Relations:      req.Relations,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, summary, nil)
}
