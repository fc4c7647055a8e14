package faces

import (
	"context"

	"github.com/google/uuid"

	"github.com/albumworks/albumserver/roster"
	"github.com/albumworks/albumserver/vectorindex"
)

// Embedder produces one embedding per detected face. An image with no
// faces yields an empty slice.
type Embedder interface {
	Extract(data []byte) ([][]float32, error)
	ExtractFile(path string) ([][]float32, error)
}

// Index is the slice of the vector index the pipeline uses.
type Index interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*vectorindex.Record, error)
	PutRecord(ctx context.Context, rec *vectorindex.Record, exists bool) error
	NearSearch(ctx context.Context, vector []float32, maxDistance float64) (*vectorindex.Match, error)
}

// RosterSource provides the authoritative list of known people and
// their reference photos.
type RosterSource interface {
	ListMembers(ctx context.Context) ([]roster.Member, error)
	DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error)
}
