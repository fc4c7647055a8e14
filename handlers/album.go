package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/repository"
)

type AlbumHandler struct {
	Albums    repository.AlbumRepositoryInterface
	Presenter Presenter
}

func (ah *AlbumHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: name"})
		return
	}

	count, err := ah.Albums.Count()
	if err != nil {
		log.Printf("Error counting albums: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create album"})
		return
	}

	album := &models.Album{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   int(count),
	}
	if err := ah.Albums.Create(album); err != nil {
		log.Printf("Error creating album '%s': %v", req.Name, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create album"})
		return
	}

	resp, err := ah.Presenter.Album(album, false)
	if err != nil {
		log.Printf("Error shaping album %s: %v", album.ID, err)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Album created successfully", "id": album.ID})
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (ah *AlbumHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := ah.Albums.ListAll()
	if err != nil {
		log.Printf("Error listing albums: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve albums"})
		return
	}

	out := make([]AlbumResponse, 0, len(albums))
	for i := range albums {
		resp, err := ah.Presenter.Album(&albums[i], false)
		if err != nil {
			log.Printf("Error shaping album %s: %v", albums[i].ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve albums"})
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (ah *AlbumHandler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "album_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid album ID format"})
		return
	}

	album, err := ah.Albums.GetByID(albumID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Album not found"})
		} else {
			log.Printf("Error getting album %s: %v", albumID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve album"})
		}
		return
	}

	resp, err := ah.Presenter.Album(album, true)
	if err != nil {
		log.Printf("Error shaping album %s: %v", albumID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve album"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ah *AlbumHandler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "album_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid album ID format"})
		return
	}

	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: name"})
		return
	}

	if err := ah.Albums.Update(albumID, req.Name, req.Description); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Album not found"})
		} else {
			log.Printf("Error updating album %s: %v", albumID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update album"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Album updated successfully"})
}

func (ah *AlbumHandler) SetAlbumOrder(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "album_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid album ID format"})
		return
	}

	var req struct {
		Order int `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := ah.Albums.SetSortOrder(albumID, req.Order); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Album not found"})
		} else {
			log.Printf("Error setting order for album %s: %v", albumID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to set album order"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Album order updated"})
}

func (ah *AlbumHandler) SetAlbumPreview(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "album_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid album ID format"})
		return
	}

	var req struct {
		ItemID uuid.UUID `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.ItemID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: item_id"})
		return
	}

	if err := ah.Albums.SetPreview(albumID, req.ItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Album or item not found"})
		} else {
			log.Printf("Error setting preview for album %s: %v", albumID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to set album preview"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Album preview updated"})
}
