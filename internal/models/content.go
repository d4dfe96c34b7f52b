package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Content is the assessment identity behind course content nodes. It is matched
// by NameKey since the same assessment recurs across offerings under
// differently cased names.
type Content struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Content) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.NameKey = FoldName(c.Name)
	return nil
}

// StudentGrade is one student's score for one content identity.
type StudentGrade struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_grades_student_content" json:"student_id" validate:"required,max=64"`
	ContentID uint      `gorm:"not null;index;uniqueIndex:idx_grades_student_content" json:"content_id"`
	Score     float64   `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
