package handlers

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/signing"
)

// Presenter shapes model rows into API responses. Stored asset paths
// never leave the server; every path in a response is a signed,
// expiring link.
type Presenter struct {
	Codec   *signing.Codec
	BaseURL string
	TTL     time.Duration
}

type IdentitySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ItemResponse struct {
	ID         uuid.UUID         `json:"id"`
	User       *string           `json:"user,omitempty"`
	Type       models.BinaryType `json:"type"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Path       string            `json:"path"`
	CoverPath  string            `json:"cover_path"`
	Date       int64             `json:"date"`
	Identities []IdentitySummary `json:"identities,omitempty"`
	CreatedAt  int64             `json:"created_at"`
	UpdatedAt  int64             `json:"updated_at"`
}

type AlbumResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	SortOrder   int            `json:"sort_order"`
	Cover       *string        `json:"cover"`
	Items       []ItemResponse `json:"items,omitempty"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

type IdentityResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Cover     *string        `json:"cover"`
	ItemCount int            `json:"item_count"`
	Items     []ItemResponse `json:"items,omitempty"`
}

func (p Presenter) Item(item *models.Item) (ItemResponse, error) {
	urls, err := p.Codec.SignItemURLs(p.BaseURL, item.ID, p.TTL)
	if err != nil {
		return ItemResponse{}, err
	}

	resp := ItemResponse{
		ID:        item.ID,
		User:      item.UploaderID,
		Type:      item.Type,
		Width:     item.Width,
		Height:    item.Height,
		Path:      urls.Full,
		CoverPath: urls.Cover,
		Date:      item.Date,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	for _, identity := range item.Identities {
		resp.Identities = append(resp.Identities, IdentitySummary{ID: identity.ID, Name: identity.Name})
	}
	return resp, nil
}

func (p Presenter) Items(items []models.Item) ([]ItemResponse, error) {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		resp, err := p.Item(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (p Presenter) Album(album *models.Album, includeItems bool) (AlbumResponse, error) {
	resp := AlbumResponse{
		ID:          album.ID,
		Name:        album.Name,
		Description: album.Description,
		SortOrder:   album.SortOrder,
		Cover:       p.coverURL(album.PreviewID),
		CreatedAt:   album.CreatedAt,
		UpdatedAt:   album.UpdatedAt,
	}

	if includeItems {
		items, err := p.Items(album.Items)
		if err != nil {
			return AlbumResponse{}, err
		}
		resp.Items = items
	}
	return resp, nil
}

func (p Presenter) Identity(identity *models.Identity, includeItems bool) (IdentityResponse, error) {
	resp := IdentityResponse{
		ID:        identity.ID,
		Name:      identity.Name,
		Cover:     p.coverURL(identity.PreviewID),
		ItemCount: len(identity.Items),
	}

	if includeItems {
		items, err := p.Items(identity.Items)
		if err != nil {
			return IdentityResponse{}, err
		}
		resp.Items = items
	}
	return resp, nil
}

// coverURL signs the cover link for a preview item, or nil when no
// preview is set.
func (p Presenter) coverURL(previewID *uuid.UUID) *string {
	if previewID == nil {
		return nil
	}
	urls, err := p.Codec.SignItemURLs(p.BaseURL, *previewID, p.TTL)
	if err != nil {
		log.Printf("Error signing cover URL for item %s: %v", *previewID, err)
		return nil
	}
	return &urls.Cover
}
