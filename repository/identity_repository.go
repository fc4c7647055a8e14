package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/models"
)

// IdentityRepository handles database operations for Identity entities
type IdentityRepository struct {
	DB *gorm.DB
}

// Ensure IdentityRepository implements IdentityRepositoryInterface
var _ IdentityRepositoryInterface = (*IdentityRepository)(nil)

// NewIdentityRepository creates a new instance of IdentityRepository
func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{DB: db}
}

// GetByID retrieves an identity with its items, newest first, and preview
func (r *IdentityRepository) GetByID(id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	err := r.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("items.date desc")
	}).Preload("Preview").First(&identity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get identity %s: %w", id, err)
	}
	return &identity, nil
}

// GetOrCreate fetches the identity row for the given stable id,
// creating it lazily on first use. The id is keyed by the upstream
// roster, so concurrent upserts for the same identity are commutative.
func (r *IdentityRepository) GetOrCreate(id uuid.UUID, name string) (*models.Identity, error) {
	var identity models.Identity
	err := r.DB.First(&identity, "id = ?", id).Error
	if err == nil {
		return &identity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get identity %s: %w", id, err)
	}

	now := time.Now().Unix()
	identity = models.Identity{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.DB.Create(&identity).Error; err != nil {
		return nil, fmt.Errorf("failed to create identity %s (%s): %w", id, name, err)
	}
	return &identity, nil
}

// ListAll retrieves all identities with their previews and items preloaded
func (r *IdentityRepository) ListAll() ([]models.Identity, error) {
	var identities []models.Identity
	err := r.DB.Preload("Preview").Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("items.date desc")
	}).Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// SetPreview points an identity at its enrollment photo item, or
// clears the reference when itemID is nil.
func (r *IdentityRepository) SetPreview(identityID uuid.UUID, itemID *uuid.UUID) error {
	result := r.DB.Model(&models.Identity{}).Where("id = ?", identityID).Updates(map[string]interface{}{
		"preview_id": itemID,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set preview for identity %s: %w", identityID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
