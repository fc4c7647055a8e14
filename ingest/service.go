package ingest

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/repository"
)

// Service owns the upload path: it turns raw bytes into stored assets
// plus an item row. Face tagging happens later, asynchronously; every
// item starts out unprocessed.
type Service struct {
	items     repository.ItemRepositoryInterface
	store     media.Store
	processor *media.Processor
}

func NewService(items repository.ItemRepositoryInterface, store media.Store, processor *media.Processor) *Service {
	return &Service{
		items:     items,
		store:     store,
		processor: processor,
	}
}

// CreateItem processes one upload and persists the resulting item. An
// unsupported content type yields (nil, nil) so batch uploads can skip
// the file and continue. Items without an album are enrollment photos
// and are stored under the enrollment asset tree.
func (s *Service) CreateItem(uploaderID *string, data []byte, contentType string, albumID *uuid.UUID, date *time.Time) (*models.Item, error) {
	kind, ok := media.BinaryTypeOf(contentType)
	if !ok {
		log.Printf("ingest: skipping upload with unsupported content type '%s'", contentType)
		return nil, nil
	}

	assetType := media.AssetTypeEnrollment
	dirHint := ""
	if albumID != nil {
		assetType = media.AssetTypeItem
		dirHint = albumID.String()
	}

	var processed *media.ProcessedUpload
	var err error
	switch models.BinaryType(kind) {
	case models.BinaryTypeImage:
		processed, err = s.processor.ProcessImage(data, assetType, dirHint)
	case models.BinaryTypeVideo:
		processed, err = s.processor.ProcessVideo(data, assetType, dirHint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to process upload: %w", err)
	}

	itemDate := time.Now().Unix()
	if date != nil {
		itemDate = date.Unix()
	} else if processed.TakenAt != nil {
		itemDate = *processed.TakenAt
	}

	item := &models.Item{
		UploaderID: uploaderID,
		AlbumID:    albumID,
		Type:       models.BinaryType(kind),
		Width:      processed.Width,
		Height:     processed.Height,
		Path:       processed.Path,
		CoverPath:  processed.CoverPath,
		Date:       itemDate,
	}

	if err := s.items.Create(item); err != nil {
		s.removeAssets(item)
		return nil, fmt.Errorf("failed to persist item: %w", err)
	}

	return item, nil
}

// DeleteItem removes an item's stored assets and its database row,
// including any identity links.
func (s *Service) DeleteItem(item *models.Item) error {
	s.removeAssets(item)
	if err := s.items.Delete(item.ID); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Service) removeAssets(item *models.Item) {
	if item.Path != "" {
		if err := s.store.Delete(item.Path); err != nil {
			log.Printf("ingest: failed to delete asset '%s': %v", item.Path, err)
		}
	}
	if item.CoverPath != "" {
		if err := s.store.Delete(item.CoverPath); err != nil {
			log.Printf("ingest: failed to delete cover '%s': %v", item.CoverPath, err)
		}
	}
}
