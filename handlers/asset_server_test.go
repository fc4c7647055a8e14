package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albumworks/albumserver/database"
	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/signing"
)

const testBaseURL = "http://photos.example.test"

func newAssetFixture(t *testing.T) (*AssetHandler, *models.Item, *signing.Codec) {
	t.Helper()

	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))

	store, err := media.NewLocalStorage(t.TempDir(), map[media.AssetType]string{
		media.AssetTypeItem: "items",
	})
	require.NoError(t, err)

	relPath, err := store.Save(media.AssetTypeItem, "", "a.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)

	items := repository.NewItemRepository(db)
	item := &models.Item{Type: models.BinaryTypeImage, Path: relPath, CoverPath: relPath}
	require.NoError(t, items.Create(item))

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	codec := signing.NewCodec(key)

	handler := &AssetHandler{Items: items, Store: store, Codec: codec, BaseURL: testBaseURL}
	return handler, item, codec
}

func newAssetRouter(handler *AssetHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/items/{item_id}/{expiry}/{variant}", handler.ServeAsset)
	return r
}

// signedRequestPath signs a link the way the API hands them out and
// strips the base URL so it can be replayed against the test router.
func signedRequestPath(t *testing.T, codec *signing.Codec, path string) string {
	t.Helper()
	signed, err := codec.Sign(path)
	require.NoError(t, err)
	return strings.TrimPrefix(signed, testBaseURL)
}

func TestServeAssetValidLink(t *testing.T) {
	handler, item, codec := newAssetFixture(t)
	router := newAssetRouter(handler)

	expiry := time.Now().Add(time.Hour).Unix()
	reqPath := signedRequestPath(t, codec, fmt.Sprintf("%s/items/%s/%d/full", testBaseURL, item.ID, expiry))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg bytes", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestServeAssetRejectsTamperedItemID(t *testing.T) {
	handler, item, codec := newAssetFixture(t)
	router := newAssetRouter(handler)

	expiry := time.Now().Add(time.Hour).Unix()
	signed, err := codec.Sign(fmt.Sprintf("%s/items/%s/%d/full", testBaseURL, item.ID, expiry))
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	otherItem := strings.Replace(parsed.Path, item.ID.String(), "00000000-0000-0000-0000-000000000001", 1)
	reqPath := otherItem + "?" + parsed.RawQuery

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAssetRejectsExpiredLink(t *testing.T) {
	handler, item, codec := newAssetFixture(t)
	router := newAssetRouter(handler)

	// correctly signed, but the embedded expiry is in the past
	expiry := time.Now().Add(-time.Minute).Unix()
	reqPath := signedRequestPath(t, codec, fmt.Sprintf("%s/items/%s/%d/full", testBaseURL, item.ID, expiry))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAssetRejectsExtendedExpiry(t *testing.T) {
	handler, item, codec := newAssetFixture(t)
	router := newAssetRouter(handler)

	expiry := time.Now().Add(-time.Minute).Unix()
	signed, err := codec.Sign(fmt.Sprintf("%s/items/%s/%d/full", testBaseURL, item.ID, expiry))
	require.NoError(t, err)

	// stretching the expiry invalidates the signature since the expiry
	// segment is covered by it
	later := time.Now().Add(time.Hour).Unix()
	stretched := strings.Replace(signed, fmt.Sprintf("/%d/", expiry), fmt.Sprintf("/%d/", later), 1)
	reqPath := strings.TrimPrefix(stretched, testBaseURL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAssetRejectsMissingSignature(t *testing.T) {
	handler, item, _ := newAssetFixture(t)
	router := newAssetRouter(handler)

	expiry := time.Now().Add(time.Hour).Unix()
	reqPath := fmt.Sprintf("/items/%s/%d/full", item.ID, expiry)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAssetRejectsUnknownVariant(t *testing.T) {
	handler, item, codec := newAssetFixture(t)
	router := newAssetRouter(handler)

	expiry := time.Now().Add(time.Hour).Unix()
	reqPath := signedRequestPath(t, codec, fmt.Sprintf("%s/items/%s/%d/original", testBaseURL, item.ID, expiry))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reqPath, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
