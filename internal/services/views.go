package services

import (
	"github.com/giraph/engine/internal/graph"
	"github.com/giraph/engine/internal/models"
)

// RelationStub is a relation as seen from one of its endpoints.
type RelationStub struct {
	SourceID   uint `json:"node1_id"`
	TargetID   uint `json:"node2_id"`
	RelationID uint `json:"relation_id"`
	Weight     int  `json:"weight"`
}

type NodeView struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Relations []RelationStub `json:"relations"`
	Score     *float64       `json:"score,omitempty"`
}

// GraphView is the three-layer graph presentation.
type GraphView struct {
	CourseContents  []NodeView `json:"course_contents"`
	CourseOutcomes  []NodeView `json:"course_outcomes"`
	ProgramOutcomes []NodeView `json:"program_outcomes"`
}

// Find returns the view of a node by id.
func (g *GraphView) Find(id uint) (NodeView, bool) {
	for _, layer := range [][]NodeView{g.CourseContents, g.CourseOutcomes, g.ProgramOutcomes} {
		for _, n := range layer {
			if n.ID == id {
				return n, true
			}
		}
	}
	return NodeView{}, false
}

// buildView attaches every relation touching a node, incoming and outgoing.
func buildView(snap graph.Snapshot, score func(models.Node) *float64) *GraphView {
	touching := make(map[uint][]RelationStub)
	for _, r := range snap.Relations {
		stub := RelationStub{SourceID: r.SourceID, TargetID: r.TargetID, RelationID: r.ID, Weight: r.Weight}
		touching[r.SourceID] = append(touching[r.SourceID], stub)
		if r.TargetID != r.SourceID {
			touching[r.TargetID] = append(touching[r.TargetID], stub)
		}
	}

	view := &GraphView{
		CourseContents:  []NodeView{},
		CourseOutcomes:  []NodeView{},
		ProgramOutcomes: []NodeView{},
	}
	for _, n := range snap.Nodes {
		rels := touching[n.ID]
		if rels == nil {
			rels = []RelationStub{}
		}
		nv := NodeView{ID: n.ID, Name: n.Name, Relations: rels, Score: score(n)}
		switch n.Layer {
		case models.LayerCourseContent:
			view.CourseContents = append(view.CourseContents, nv)
		case models.LayerCourseOutcome:
			view.CourseOutcomes = append(view.CourseOutcomes, nv)
		case models.LayerProgramOutcome:
			view.ProgramOutcomes = append(view.ProgramOutcomes, nv)
		}
	}
	return view
}
