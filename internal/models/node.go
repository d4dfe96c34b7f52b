package models

import (
	"time"

	"github.com/google/uuid"
)

// Layer is one of the three node categories of the outcomes graph.
type Layer string

const (
	LayerCourseContent  Layer = "course_content"
	LayerCourseOutcome  Layer = "course_outcome"
	LayerProgramOutcome Layer = "program_outcome"
)

// GlobalScope is the scope key of nodes without a course.
const GlobalScope = "global"

// MaxNameLength bounds node display names.
const MaxNameLength = 255

// Valid reports whether l is a known layer.
func (l Layer) Valid() bool {
	switch l {
	case LayerCourseContent, LayerCourseOutcome, LayerProgramOutcome:
		return true
	}
	return false
}

// Node is a vertex of the outcomes graph.
//
// Scope mirrors CourseID as a non-null string so that the unique index on
// (name, layer, scope) also covers global nodes; SQL treats NULLs as distinct.
type Node struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_nodes_name_layer_scope" json:"name"`
	Layer     Layer      `gorm:"type:varchar(32);not null;index;uniqueIndex:idx_nodes_name_layer_scope" json:"layer"`
	CourseID  *uuid.UUID `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Scope     string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_nodes_name_layer_scope" json:"-"`
	Score     *float64   `json:"score,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ScopeFor returns the scope key for an optional course.
func ScopeFor(courseID *uuid.UUID) string {
	if courseID == nil {
		return GlobalScope
	}
	return courseID.String()
}

// NewNode builds an unsaved node with its scope key filled in.
func NewNode(name string, layer Layer, courseID *uuid.UUID) *Node {
	return &Node{Name: name, Layer: layer, CourseID: courseID, Scope: ScopeFor(courseID)}
}
