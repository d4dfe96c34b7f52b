package graph

import (
	"math"

	"github.com/giraph/engine/internal/models"
)

// Snapshot is an immutable view of the nodes and relations a computation runs over.
type Snapshot struct {
	Nodes     []models.Node
	Relations []models.Relation
}

// Scores holds propagated values keyed by node id. Values are unrounded.
type Scores struct {
	Leaves          map[uint]float64
	CourseOutcomes  map[uint]float64
	ProgramOutcomes map[uint]float64
}

// Of returns the score of any node in the result, 0 when absent.
func (s Scores) Of(id uint) float64 {
	if v, ok := s.Leaves[id]; ok {
		return v
	}
	if v, ok := s.CourseOutcomes[id]; ok {
		return v
	}
	return s.ProgramOutcomes[id]
}

// Propagate computes course outcome and program outcome scores as weighted
// averages of their incoming relations. Leaf scores missing from leaves count
// as 0. Relations whose endpoints are not in the snapshot, or that do not
// follow CC→CO / CO→PO, are ignored. A node with no usable incoming relation
// scores 0.
func Propagate(snap Snapshot, leaves map[uint]float64) Scores {
	layers := make(map[uint]models.Layer, len(snap.Nodes))
	out := Scores{
		Leaves:          make(map[uint]float64),
		CourseOutcomes:  make(map[uint]float64),
		ProgramOutcomes: make(map[uint]float64),
	}
	for _, n := range snap.Nodes {
		layers[n.ID] = n.Layer
		switch n.Layer {
		case models.LayerCourseContent:
			out.Leaves[n.ID] = leaves[n.ID]
		case models.LayerCourseOutcome:
			out.CourseOutcomes[n.ID] = 0
		case models.LayerProgramOutcome:
			out.ProgramOutcomes[n.ID] = 0
		}
	}

	incoming := func(dst models.Layer) map[uint][]models.Relation {
		m := make(map[uint][]models.Relation)
		for _, r := range snap.Relations {
			srcLayer, okSrc := layers[r.SourceID]
			dstLayer, okDst := layers[r.TargetID]
			if !okSrc || !okDst || dstLayer != dst || !ValidEdge(srcLayer, dstLayer) {
				continue
			}
			m[r.TargetID] = append(m[r.TargetID], r)
		}
		return m
	}

	for id, rels := range incoming(models.LayerCourseOutcome) {
		out.CourseOutcomes[id] = weightedAverage(rels, out.Leaves)
	}
	for id, rels := range incoming(models.LayerProgramOutcome) {
		out.ProgramOutcomes[id] = weightedAverage(rels, out.CourseOutcomes)
	}
	return out
}

func weightedAverage(rels []models.Relation, src map[uint]float64) float64 {
	var sum, total float64
	for _, r := range rels {
		if r.Weight <= 0 {
			continue
		}
		w := float64(r.Weight)
		sum += src[r.SourceID] * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
