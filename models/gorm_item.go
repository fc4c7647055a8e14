package models

import "github.com/google/uuid"

// BinaryType distinguishes the two kinds of media an item can hold.
type BinaryType string

const (
	BinaryTypeImage BinaryType = "image"
	BinaryTypeVideo BinaryType = "video"
)

// Item represents an uploaded photo or video using GORM.
// It corresponds to the 'items' table.
//
// Processed is false until the face-tagging pass has run to completion
// for this item; the backlog sweeper picks up anything still false.
type Item struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UploaderID *string    `gorm:"" json:"user,omitempty"`                // Nullable, subject of the uploading user
	AlbumID    *uuid.UUID `gorm:"type:uuid;index" json:"-"`              // Nullable, enrollment photos have none
	Type       BinaryType `gorm:"not null" json:"type"`
	Width      int        `gorm:"" json:"width"`
	Height     int        `gorm:"" json:"height"`
	Path       string     `gorm:"not null" json:"path"`       // full asset, relative to media storage
	CoverPath  string     `gorm:"" json:"cover_path"`         // cover thumbnail, relative to media storage
	Date       int64      `gorm:"index" json:"date"`          // capture or upload time, Unix timestamp
	Processed  bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt  int64      `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt  int64      `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	Album      *Album     `gorm:"foreignKey:AlbumID" json:"-"`
	Identities []Identity `gorm:"many2many:item_identities" json:"identities,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Item) TableName() string {
	return "items"
}
