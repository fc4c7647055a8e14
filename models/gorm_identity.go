package models

import "github.com/google/uuid"

// Identity represents a known person in the face index using GORM.
// It corresponds to the 'identities' table.
//
// The ID is the stable external UUID derived from the upstream roster
// id. Rows are created lazily the first time a face matches or a
// roster entry is reconciled; this service never deletes them.
type Identity struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	PreviewID *uuid.UUID `gorm:"type:uuid" json:"preview_id,omitempty"` // Nullable, enrollment photo item
	CreatedAt int64      `gorm:"not null" json:"created_at"`            // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64      `gorm:"not null" json:"updated_at"`            // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	Preview *Item  `gorm:"foreignKey:PreviewID" json:"preview,omitempty"`
	Items   []Item `gorm:"many2many:item_identities" json:"items,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Identity) TableName() string {
	return "identities"
}
