package models

import "github.com/google/uuid"

// Album represents an album of uploaded media items using GORM.
// It corresponds to the 'albums' table.
type Album struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description *string    `gorm:"" json:"description,omitempty"` // Nullable
	SortOrder   int        `gorm:"not null;default:0" json:"order"`
	PreviewID   *uuid.UUID `gorm:"type:uuid" json:"preview_id,omitempty"` // Nullable
	CreatedAt   int64      `gorm:"not null" json:"created_at"`            // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt   int64      `gorm:"not null" json:"updated_at"`            // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	Preview *Item  `gorm:"foreignKey:PreviewID" json:"preview,omitempty"`
	Items   []Item `gorm:"foreignKey:AlbumID" json:"items,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Album) TableName() string {
	return "albums"
}
