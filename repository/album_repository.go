package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/models"
)

// AlbumRepository handles database operations for Album entities
type AlbumRepository struct {
	DB *gorm.DB
}

// Ensure AlbumRepository implements AlbumRepositoryInterface
var _ AlbumRepositoryInterface = (*AlbumRepository)(nil)

// NewAlbumRepository creates a new instance of AlbumRepository
func NewAlbumRepository(db *gorm.DB) *AlbumRepository {
	return &AlbumRepository{DB: db}
}

// Create creates a new album record in the database
func (r *AlbumRepository) Create(album *models.Album) error {
	now := time.Now().Unix()
	if album.ID == uuid.Nil {
		album.ID = uuid.New()
	}
	if album.CreatedAt == 0 {
		album.CreatedAt = now
	}
	album.UpdatedAt = now

	if err := r.DB.Create(album).Error; err != nil {
		return fmt.Errorf("failed to create album '%s': %w", album.Name, err)
	}
	return nil
}

// ListAll retrieves all albums ordered by their explicit sort order,
// with their preview items preloaded
func (r *AlbumRepository) ListAll() ([]models.Album, error) {
	var albums []models.Album
	err := r.DB.Preload("Preview").Order("sort_order asc").Find(&albums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// GetByID retrieves an album with its items, newest first
func (r *AlbumRepository) GetByID(id uuid.UUID) (*models.Album, error) {
	var album models.Album
	err := r.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("items.date desc")
	}).Preload("Preview").First(&album, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get album %s: %w", id, err)
	}
	return &album, nil
}

// Update changes an album's name and description
func (r *AlbumRepository) Update(albumID uuid.UUID, name string, description *string) error {
	updates := map[string]interface{}{
		"name":        name,
		"description": description,
		"updated_at":  time.Now().Unix(),
	}
	result := r.DB.Model(&models.Album{}).Where("id = ?", albumID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update album %s: %w", albumID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetSortOrder updates an album's position in the album listing
func (r *AlbumRepository) SetSortOrder(albumID uuid.UUID, order int) error {
	result := r.DB.Model(&models.Album{}).Where("id = ?", albumID).Updates(map[string]interface{}{
		"sort_order": order,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set sort order for album %s: %w", albumID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPreview sets an album's preview item. The item must belong to the album.
func (r *AlbumRepository) SetPreview(albumID uuid.UUID, itemID uuid.UUID) error {
	var item models.Item
	if err := r.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return fmt.Errorf("failed to load item %s for preview: %w", itemID, err)
	}
	if item.AlbumID == nil || *item.AlbumID != albumID {
		return fmt.Errorf("item %s does not belong to album %s", itemID, albumID)
	}

	result := r.DB.Model(&models.Album{}).Where("id = ?", albumID).Updates(map[string]interface{}{
		"preview_id": itemID,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set preview for album %s: %w", albumID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of albums
func (r *AlbumRepository) Count() (int64, error) {
	var count int64
	if err := r.DB.Model(&models.Album{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}
