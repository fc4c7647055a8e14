package faces

import (
	"context"
	"fmt"
	"log"

	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/repository"
)

// Tagger links uploaded items to the identities found in them. The
// processed flag flips only after every link for the item has been
// committed, so a crash mid-tag leaves the item eligible for a retry
// rather than half-tagged and forgotten.
type Tagger struct {
	index       Index
	embedder    Embedder
	store       media.Store
	items       repository.ItemRepositoryInterface
	identities  repository.IdentityRepositoryInterface
	maxDistance float64
}

func NewTagger(
	index Index,
	embedder Embedder,
	store media.Store,
	items repository.ItemRepositoryInterface,
	identities repository.IdentityRepositoryInterface,
	maxDistance float64,
) *Tagger {
	return &Tagger{
		index:       index,
		embedder:    embedder,
		store:       store,
		items:       items,
		identities:  identities,
		maxDistance: maxDistance,
	}
}

// Tag runs the face pass for one item. Videos are marked processed
// without any face work. An error leaves the item unprocessed so a
// later sweep retries it.
func (t *Tagger) Tag(ctx context.Context, item *models.Item) error {
	if item.Type == models.BinaryTypeVideo {
		return t.items.MarkProcessed(item.ID)
	}

	fullPath, err := t.store.GetFullPath(item.Path)
	if err != nil {
		return fmt.Errorf("cannot resolve asset path for item %s: %w", item.ID, err)
	}

	embeddings, err := t.embedder.ExtractFile(fullPath)
	if err != nil {
		return fmt.Errorf("embedding extraction failed for item %s: %w", item.ID, err)
	}

	linked := 0
	for _, embedding := range embeddings {
		match, err := t.index.NearSearch(ctx, embedding, t.maxDistance)
		if err != nil {
			return fmt.Errorf("vector search failed for item %s: %w", item.ID, err)
		}
		if match == nil {
			continue
		}

		identity, err := t.identities.GetOrCreate(match.IdentityID, match.Name)
		if err != nil {
			return fmt.Errorf("failed to resolve identity %s: %w", match.IdentityID, err)
		}
		if err := t.items.LinkIdentity(item, identity); err != nil {
			return fmt.Errorf("failed to link identity %s to item %s: %w", identity.ID, item.ID, err)
		}
		linked++
	}

	if len(embeddings) > 0 {
		log.Printf("tagger: item %s, %d faces, %d recognized", item.ID, len(embeddings), linked)
	}

	return t.items.MarkProcessed(item.ID)
}
