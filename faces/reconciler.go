package faces

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/albumworks/albumserver/ingest"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/roster"
	"github.com/albumworks/albumserver/vectorindex"
)

// Action is the per-member outcome of comparing the roster photo
// against the stored enrollment record.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// Reconciler keeps the vector index and the identity table in step with
// the upstream roster. One Run is one full pass; members whose photo
// hash is unchanged cost no writes at all.
type Reconciler struct {
	source      RosterSource
	index       Index
	embedder    Embedder
	identities  repository.IdentityRepositoryInterface
	items       repository.ItemRepositoryInterface
	ingest      *ingest.Service
	maxDistance float64
}

func NewReconciler(
	source RosterSource,
	index Index,
	embedder Embedder,
	identities repository.IdentityRepositoryInterface,
	items repository.ItemRepositoryInterface,
	ingestSvc *ingest.Service,
	maxDistance float64,
) *Reconciler {
	return &Reconciler{
		source:      source,
		index:       index,
		embedder:    embedder,
		identities:  identities,
		items:       items,
		ingest:      ingestSvc,
		maxDistance: maxDistance,
	}
}

// Run performs one reconciliation pass. Failure to fetch the roster
// aborts the pass; a failure on a single member is logged and the pass
// moves on to the next one.
func (r *Reconciler) Run(ctx context.Context) error {
	members, err := r.source.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation aborted: %w", err)
	}

	log.Printf("reconciler: starting pass over %d roster members", len(members))

	var created, updated, unchanged, failed int
	for _, member := range members {
		action, err := r.reconcileMember(ctx, member)
		if err != nil {
			log.Printf("reconciler: member %d (%s) failed: %v", member.ID, member.Name, err)
			failed++
			continue
		}
		switch action {
		case ActionCreate:
			created++
		case ActionUpdate:
			updated++
		default:
			unchanged++
		}
	}

	log.Printf("reconciler: pass done, created=%d updated=%d unchanged=%d failed=%d", created, updated, unchanged, failed)
	return nil
}

func (r *Reconciler) reconcileMember(ctx context.Context, member roster.Member) (Action, error) {
	photo, err := r.source.DownloadPhoto(ctx, member.PhotoURL)
	if err != nil {
		return ActionNone, err
	}

	identityID := member.IdentityID()
	hash := roster.ContentHash(photo)

	record, err := r.index.GetRecord(ctx, identityID)
	if err != nil {
		return ActionNone, err
	}

	action := decideAction(record, hash)
	if action == ActionNone {
		return ActionNone, nil
	}

	embeddings, err := r.embedder.Extract(photo)
	if err != nil {
		return ActionNone, fmt.Errorf("embedding extraction failed: %w", err)
	}
	if len(embeddings) == 0 {
		log.Printf("reconciler: no face found in photo for member %d (%s), skipping", member.ID, member.Name)
		return ActionNone, nil
	}

	// a roster photo should hold exactly one face; when it holds more,
	// the first detected one is enrolled
	identity, err := r.identities.GetOrCreate(identityID, member.Name)
	if err != nil {
		return ActionNone, err
	}

	err = r.index.PutRecord(ctx, &vectorindex.Record{
		ID:     identityID,
		Vector: embeddings[0],
		Hash:   hash,
		Name:   member.Name,
	}, action == ActionUpdate)
	if err != nil {
		return ActionNone, err
	}

	if action == ActionUpdate && identity.PreviewID != nil {
		if err := r.replacePreview(identity.ID, *identity.PreviewID); err != nil {
			log.Printf("reconciler: could not remove stale preview for %s: %v", member.Name, err)
		}
	}

	item, err := r.ingest.CreateItem(nil, photo, "image/jpeg", nil, nil)
	if err != nil {
		return ActionNone, fmt.Errorf("failed to store enrollment photo: %w", err)
	}

	// enrollment photos never go through the tagging queue
	if err := r.items.MarkProcessed(item.ID); err != nil {
		return ActionNone, err
	}
	if err := r.identities.SetPreview(identityID, &item.ID); err != nil {
		return ActionNone, err
	}

	log.Printf("reconciler: %s for member %d (%s)", action, member.ID, member.Name)
	return action, nil
}

func (r *Reconciler) replacePreview(identityID, previewID uuid.UUID) error {
	if err := r.identities.SetPreview(identityID, nil); err != nil {
		return err
	}

	old, err := r.items.GetByID(previewID)
	if err != nil {
		return err
	}
	return r.ingest.DeleteItem(old)
}

// decideAction compares the stored record against the freshly computed
// photo hash. Hyphens are stripped from both sides before comparison so
// records written with a dashed hash format still count as unchanged.
func decideAction(record *vectorindex.Record, hash string) Action {
	if record == nil {
		return ActionCreate
	}
	if normalizeHash(record.Hash) == normalizeHash(hash) {
		return ActionNone
	}
	return ActionUpdate
}

func normalizeHash(hash string) string {
	return strings.ReplaceAll(hash, "-", "")
}
