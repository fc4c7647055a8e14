package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/ingest"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/workers"
)

// uploads are buffered in memory per file; this bounds a single
// multipart request
const maxUploadBytes = 256 << 20

type ItemHandler struct {
	Items     repository.ItemRepositoryInterface
	Ingest    *ingest.Service
	TagQueue  *workers.TagProcessor
	Presenter Presenter
}

// UploadItems accepts a multipart batch of files for an album. Files
// with an unsupported content type are skipped, not rejected; the
// response lists what was actually stored. Face tagging runs in the
// background after the response is sent.
func (ih *ItemHandler) UploadItems(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "album_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid album ID format"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid multipart request: " + err.Error()})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files in 'files' field"})
		return
	}

	var uploaderID *string
	if user, ok := UserFromContext(r.Context()); ok && user.ID != "" {
		uploaderID = &user.ID
	}

	var date *time.Time
	if dateStr := r.FormValue("date"); dateStr != "" {
		parsed, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date, expected RFC 3339"})
			return
		}
		date = &parsed
	}

	responses := make([]ItemResponse, 0, len(files))
	skipped := 0
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			log.Printf("Error opening uploaded file '%s': %v", header.Filename, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read upload"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			log.Printf("Error reading uploaded file '%s': %v", header.Filename, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read upload"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		item, err := ih.Ingest.CreateItem(uploaderID, data, contentType, &albumID, date)
		if err != nil {
			log.Printf("Error ingesting '%s' into album %s: %v", header.Filename, albumID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store upload '" + header.Filename + "'"})
			return
		}
		if item == nil {
			skipped++
			continue
		}

		ih.TagQueue.QueueItem(item.ID)

		resp, err := ih.Presenter.Item(item)
		if err != nil {
			log.Printf("Error shaping item %s: %v", item.ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to sign item links"})
			return
		}
		responses = append(responses, resp)
	}

	if len(responses) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No supported files in upload"})
		return
	}
	if skipped > 0 {
		log.Printf("Upload to album %s: stored %d, skipped %d unsupported", albumID, len(responses), skipped)
	}
	writeJSON(w, http.StatusCreated, responses)
}

func (ih *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid item ID format"})
		return
	}

	item, err := ih.Items.GetByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
		} else {
			log.Printf("Error getting item %s: %v", itemID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve item"})
		}
		return
	}

	resp, err := ih.Presenter.Item(item)
	if err != nil {
		log.Printf("Error shaping item %s: %v", itemID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve item"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteItem removes an item, its stored assets, and its identity
// links. Only the uploader or an admin may delete.
func (ih *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid item ID format"})
		return
	}

	item, err := ih.Items.GetByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
		} else {
			log.Printf("Error getting item %s: %v", itemID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve item"})
		}
		return
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}
	isOwner := item.UploaderID != nil && *item.UploaderID == user.ID
	if !user.Admin && !isOwner {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "Only the uploader or an admin can delete an item")
		return
	}

	if err := ih.Ingest.DeleteItem(item); err != nil {
		log.Printf("Error deleting item %s: %v", itemID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete item"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted"})
}
