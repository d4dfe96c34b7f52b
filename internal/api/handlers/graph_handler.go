package handlers

import (
	"net/http"
	"strconv"

	"github.com/giraph/engine/internal/api/types"
	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/services"
)

type GraphHandler struct {
	graphs   services.GraphService
	validate Validator
}

func NewGraphHandler(graphs services.GraphService, v Validator) *GraphHandler {
	return &GraphHandler{graphs: graphs, validate: v}
}

// Get returns the three-layer graph, optionally scoped to a course. With
// scored=true course and program outcome scores come from propagation.
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseParam(r.URL.Query().Get("course_id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	scored, _ := strconv.ParseBool(r.URL.Query().Get("scored"))

	var view *services.GraphView
	if scored {
		view, err = h.graphs.GetScoredGraph(r.Context(), courseID)
	} else {
		view, err = h.graphs.GetFullGraph(r.Context(), courseID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusOK, view, nil)
}

func (h *GraphHandler) ListProgramOutcomes(w http.ResponseWriter, r *http.Request) {
	items, err := h.graphs.ListProgramOutcomes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req types.CreateNodeRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	n, err := h.graphs.CreateNode(r.Context(), &services.CreateNodeInput{
		Name:     req.Name,
		Layer:    models.Layer(req.Layer),
		CourseID: req.CourseID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusCreated, n, nil)
}

func (h *GraphHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.RenameNodeRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	if err := h.graphs.RenameNode(r.Context(), id, req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.graphs.DeleteNode(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GraphHandler) CreateRelation(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRelationRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	rel, err := h.graphs.CreateRelation(r.Context(), req.Node1ID, req.Node2ID, req.Weight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, r, http.StatusCreated, rel, nil)
}

func (h *GraphHandler) UpdateRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req types.UpdateRelationRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	if err := h.graphs.UpdateRelationWeight(r.Context(), id, req.Weight); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GraphHandler) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.graphs.DeleteRelation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
