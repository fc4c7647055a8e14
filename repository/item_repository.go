package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/models"
)

// ItemRepository handles database operations for Item entities
type ItemRepository struct {
	DB *gorm.DB
}

// Ensure ItemRepository implements ItemRepositoryInterface
var _ ItemRepositoryInterface = (*ItemRepository)(nil)

// NewItemRepository creates a new instance of ItemRepository
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{DB: db}
}

// Create creates a new item record in the database
func (r *ItemRepository) Create(item *models.Item) error {
	now := time.Now().Unix()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Date == 0 {
		item.Date = now
	}

	if err := r.DB.Create(item).Error; err != nil {
		return fmt.Errorf("failed to create item %s: %w", item.ID, err)
	}
	return nil
}

// GetByID retrieves an item with its linked identities
func (r *ItemRepository) GetByID(id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.DB.Preload("Identities").First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return &item, nil
}

// ListByAlbum retrieves all items of an album, newest first
func (r *ItemRepository) ListByAlbum(albumID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := r.DB.Where("album_id = ?", albumID).Order("date desc").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items for album %s: %w", albumID, err)
	}
	return items, nil
}

// ListUnprocessed retrieves every item the tagging pass has not yet completed for
func (r *ItemRepository) ListUnprocessed() ([]models.Item, error) {
	var items []models.Item
	err := r.DB.Where("processed = ?", false).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed items: %w", err)
	}
	return items, nil
}

// MarkProcessed flips an item's processed flag. Identity links written
// for the item must already be committed when this is called.
func (r *ItemRepository) MarkProcessed(id uuid.UUID) error {
	result := r.DB.Model(&models.Item{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed":  true,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark item %s processed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LinkIdentity links an item to a known identity. Appending an
// association that already exists is a no-op, so the link is idempotent.
func (r *ItemRepository) LinkIdentity(item *models.Item, identity *models.Identity) error {
	err := r.DB.Model(item).Association("Identities").Append(identity)
	if err != nil {
		return fmt.Errorf("failed to link item %s to identity %s: %w", item.ID, identity.ID, err)
	}
	return nil
}

// Delete removes an item row and its identity links
func (r *ItemRepository) Delete(id uuid.UUID) error {
	item := models.Item{ID: id}
	if err := r.DB.Model(&item).Association("Identities").Clear(); err != nil {
		return fmt.Errorf("failed to clear identity links for item %s: %w", id, err)
	}
	result := r.DB.Delete(&models.Item{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
