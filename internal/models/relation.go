package models

import "time"

const (
	MinWeight = 1
	MaxWeight = 5
)

// Relation is a directed weighted edge. SourceID/TargetID keep the node1/node2
// column names of the wire format.
type Relation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SourceID  uint      `gorm:"column:node1_id;not null;uniqueIndex:idx_relations_pair" json:"node1_id"`
	TargetID  uint      `gorm:"column:node2_id;not null;index;uniqueIndex:idx_relations_pair" json:"node2_id"`
	Weight    int       `gorm:"type:smallint;not null" json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClampWeight forces w into [MinWeight, MaxWeight].
func ClampWeight(w int) int {
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// ValidWeight reports whether w is an accepted weight.
func ValidWeight(w int) bool { return w >= MinWeight && w <= MaxWeight }
