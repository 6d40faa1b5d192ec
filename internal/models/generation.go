package models

import (
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generation is a saved note sequence plus the MIDI file rendered from it.
// Notes are stored as a native jsonb column.
type Generation struct {
	ID          string       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	UserID      string       `gorm:"type:uuid;not null;index" json:"userId"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `json:"description,omitempty"`
	Instrument  string       `gorm:"not null;default:piano" json:"instrument"`
	Notes       []music.Note `gorm:"type:jsonb;serializer:json" json:"notes"`
	FileID      string       `gorm:"not null" json:"fileId"`
	FileSize    int          `json:"fileSize"`
}

func (g *Generation) BeforeCreate(_ *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether userID owns the generation
func (g *Generation) OwnedBy(userID string) bool {
	return g.UserID != "" && g.UserID == userID
}
