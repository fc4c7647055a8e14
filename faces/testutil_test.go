package faces

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/albumworks/albumserver/database"
	"github.com/albumworks/albumserver/ingest"
	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/roster"
	"github.com/albumworks/albumserver/vectorindex"
)

type fakeEmbedder struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Extract(data []byte) ([][]float32, error) {
	f.calls++
	return f.vectors, f.err
}

func (f *fakeEmbedder) ExtractFile(path string) ([][]float32, error) {
	f.calls++
	return f.vectors, f.err
}

type fakeIndex struct {
	records   map[uuid.UUID]*vectorindex.Record
	puts      int
	searches  int
	searchErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[uuid.UUID]*vectorindex.Record)}
}

func (f *fakeIndex) GetRecord(ctx context.Context, id uuid.UUID) (*vectorindex.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeIndex) PutRecord(ctx context.Context, rec *vectorindex.Record, exists bool) error {
	f.puts++
	copied := *rec
	f.records[rec.ID] = &copied
	return nil
}

func (f *fakeIndex) NearSearch(ctx context.Context, vector []float32, maxDistance float64) (*vectorindex.Match, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var best *vectorindex.Match
	for id, rec := range f.records {
		d := cosineDistance(vector, rec.Vector)
		if d <= maxDistance && (best == nil || d < best.Distance) {
			best = &vectorindex.Match{IdentityID: id, Name: rec.Name, Distance: d}
		}
	}
	return best, nil
}

// cosineDistance assumes unit-length vectors, as the embedder produces.
func cosineDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}

type fakeRoster struct {
	members []roster.Member
	photos  map[string][]byte
	listErr error
}

func (f *fakeRoster) ListMembers(ctx context.Context) ([]roster.Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members, nil
}

func (f *fakeRoster) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	data, ok := f.photos[photoURL]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return data, nil
}

type testEnv struct {
	db         *gorm.DB
	items      *repository.ItemRepository
	identities *repository.IdentityRepository
	store      media.Store
	ingest     *ingest.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))

	store, err := media.NewLocalStorage(t.TempDir(), map[media.AssetType]string{
		media.AssetTypeItem:       "items",
		media.AssetTypeEnrollment: "enrollment",
	})
	require.NoError(t, err)

	items := repository.NewItemRepository(db)
	processor := media.NewProcessor(store, 120)

	return &testEnv{
		db:         db,
		items:      items,
		identities: repository.NewIdentityRepository(db),
		store:      store,
		ingest:     ingest.NewService(items, store, processor),
	}
}

// makeJPEG renders a small solid-color JPEG; different colors give
// different content hashes.
func makeJPEG(t *testing.T, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
