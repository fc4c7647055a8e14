package repository

import (
	"github.com/google/uuid"

	"github.com/albumworks/albumserver/models"
)

// AlbumRepositoryInterface defines the methods for album data operations
type AlbumRepositoryInterface interface {
	Create(album *models.Album) error
	ListAll() ([]models.Album, error)
	GetByID(id uuid.UUID) (*models.Album, error)
	Update(albumID uuid.UUID, name string, description *string) error
	SetSortOrder(albumID uuid.UUID, order int) error
	SetPreview(albumID uuid.UUID, itemID uuid.UUID) error
	Count() (int64, error)
}

// ItemRepositoryInterface defines the methods for media item data operations
type ItemRepositoryInterface interface {
	Create(item *models.Item) error
	GetByID(id uuid.UUID) (*models.Item, error)
	ListByAlbum(albumID uuid.UUID) ([]models.Item, error)
	ListUnprocessed() ([]models.Item, error)
	MarkProcessed(id uuid.UUID) error
	LinkIdentity(item *models.Item, identity *models.Identity) error
	Delete(id uuid.UUID) error
}

// IdentityRepositoryInterface defines the methods for known-identity data operations
type IdentityRepositoryInterface interface {
	GetByID(id uuid.UUID) (*models.Identity, error)
	GetOrCreate(id uuid.UUID, name string) (*models.Identity, error)
	ListAll() ([]models.Identity, error)
	SetPreview(identityID uuid.UUID, itemID *uuid.UUID) error
}
