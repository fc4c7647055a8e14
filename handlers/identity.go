package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/repository"
)

type IdentityHandler struct {
	Identities repository.IdentityRepositoryInterface
	Presenter  Presenter
}

// ListIdentities returns every known identity, the ones appearing in
// the most items first. Ties break on natural name order so "Ann 2"
// sorts before "Ann 10".
func (ih *IdentityHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := ih.Identities.ListAll()
	if err != nil {
		log.Printf("Error listing identities: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve identities"})
		return
	}

	sort.SliceStable(identities, func(i, j int) bool {
		if len(identities[i].Items) != len(identities[j].Items) {
			return len(identities[i].Items) > len(identities[j].Items)
		}
		return natsort.Compare(identities[i].Name, identities[j].Name)
	})

	out := make([]IdentityResponse, 0, len(identities))
	for i := range identities {
		resp, err := ih.Presenter.Identity(&identities[i], false)
		if err != nil {
			log.Printf("Error shaping identity %s: %v", identities[i].ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve identities"})
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (ih *IdentityHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	identityID, err := uuid.Parse(chi.URLParam(r, "identity_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid identity ID format"})
		return
	}

	identity, err := ih.Identities.GetByID(identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Identity not found"})
		} else {
			log.Printf("Error getting identity %s: %v", identityID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve identity"})
		}
		return
	}

	resp, err := ih.Presenter.Identity(identity, true)
	if err != nil {
		log.Printf("Error shaping identity %s: %v", identityID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve identity"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
