package faces

import (
	"context"
	"log"

	"github.com/albumworks/albumserver/repository"
)

// Sweeper catches up on items whose tagging never completed, whether
// because the queue overflowed, a worker crashed, or the process was
// restarted mid-tag. Tagging is idempotent, so re-running an item that
// was partially tagged is safe.
type Sweeper struct {
	items  repository.ItemRepositoryInterface
	tagger *Tagger
}

func NewSweeper(items repository.ItemRepositoryInterface, tagger *Tagger) *Sweeper {
	return &Sweeper{items: items, tagger: tagger}
}

// Sweep tags every unprocessed item, sequentially. A failure on one
// item is logged and the sweep continues; the item stays unprocessed
// and is retried on the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	backlog, err := s.items.ListUnprocessed()
	if err != nil {
		return err
	}
	if len(backlog) == 0 {
		return nil
	}

	log.Printf("sweeper: %d unprocessed items in backlog", len(backlog))

	var failed int
	for i := range backlog {
		if err := s.tagger.Tag(ctx, &backlog[i]); err != nil {
			log.Printf("sweeper: item %s failed: %v", backlog[i].ID, err)
			failed++
		}
	}

	if failed > 0 {
		log.Printf("sweeper: done, %d of %d items failed and remain unprocessed", failed, len(backlog))
	}
	return nil
}
