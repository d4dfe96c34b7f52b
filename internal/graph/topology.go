// Package graph holds the pure parts of the outcomes graph: edge topology,
// weighted score propagation and header-to-node resolution.
package graph

import "github.com/giraph/engine/internal/models"

// ValidEdge reports whether a relation from a src-layer node to a dst-layer
// node is allowed. Only CC→CO and CO→PO edges exist.
func ValidEdge(src, dst models.Layer) bool {
	switch {
	case src == models.LayerCourseContent && dst == models.LayerCourseOutcome:
		return true
	case src == models.LayerCourseOutcome && dst == models.LayerProgramOutcome:
		return true
	}
	return false
}
