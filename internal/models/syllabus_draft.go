package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DraftStatusPending = "pending"
	DraftStatusReady   = "ready"
	DraftStatusFailed  = "failed"
)

// SyllabusDraft stages extracted candidate names for human review before
// anything is committed to the graph.
type SyllabusDraft struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"course_id"`
	SourceKey  string         `gorm:"type:varchar(255);not null" json:"-"`
	Status     string         `gorm:"type:varchar(16);index;not null" json:"status"`
	Candidates datatypes.JSON `json:"candidates,omitempty"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SyllabusCandidates is the shape stored in SyllabusDraft.Candidates.
type SyllabusCandidates struct {
	CourseContents []string `json:"course_contents"`
	CourseOutcomes []string `json:"course_outcomes"`
}

func (d *SyllabusDraft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DraftStatusPending
	}
	return nil
}
