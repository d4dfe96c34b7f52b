package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course is an offering that owns course content and course outcome nodes.
// The course directory itself is managed elsewhere; this table mirrors it.
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code" validate:"required,max=32"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
