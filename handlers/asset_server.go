package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/signing"
)

// AssetHandler serves stored media through signed, expiring links. It
// is the only way asset bytes leave the server; there is no
// unauthenticated directory listing or raw path access.
type AssetHandler struct {
	Items   repository.ItemRepositoryInterface
	Store   media.Store
	Codec   *signing.Codec
	BaseURL string
}

// ServeAsset handles GET /items/{item_id}/{expiry}/{variant}?signature=...
// The signature is verified against the exact link that was handed out,
// with the expiry segment included, then the expiry itself is checked.
// Every rejection is a plain 404 so a probing caller learns nothing
// about why a link failed.
func (ah *AssetHandler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	itemIDStr := chi.URLParam(r, "item_id")
	expiryStr := chi.URLParam(r, "expiry")
	variant := chi.URLParam(r, "variant")

	itemID, err := uuid.Parse(itemIDStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if variant != "full" && variant != "cover" {
		http.NotFound(w, r)
		return
	}

	signedPath := fmt.Sprintf("%s/items/%s/%s/%s", ah.BaseURL, itemIDStr, expiryStr, variant)
	signature := r.URL.Query().Get("signature")
	if !ah.Codec.Verify(signedPath, signature) {
		http.NotFound(w, r)
		return
	}
	if expiry <= time.Now().Unix() {
		http.NotFound(w, r)
		return
	}

	item, err := ah.Items.GetByID(itemID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	relativePath := item.Path
	if variant == "cover" {
		relativePath = item.CoverPath
	}
	if relativePath == "" {
		http.NotFound(w, r)
		return
	}

	file, info, err := ah.Store.Get(relativePath)
	if err != nil {
		log.Printf("Error opening asset for item %s (%s): %v", itemID, variant, err)
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	if strings.HasSuffix(relativePath, media.VideoFileExtension) {
		w.Header().Set("Content-Type", "video/mp4")
	} else {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	// links expire; caching up to the remaining lifetime is safe
	remaining := expiry - time.Now().Unix()
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", remaining))

	if _, err := io.Copy(w, file); err != nil {
		log.Printf("Error streaming asset for item %s: %v", itemID, err)
	}
}
