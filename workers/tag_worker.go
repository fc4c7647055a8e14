package workers

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/albumworks/albumserver/faces"
	"github.com/albumworks/albumserver/repository"
)

// TagProcessor runs the face-tagging pass for uploaded items in the
// background. Queueing is best effort; anything dropped here is caught
// later by the backlog sweeper, since items stay unprocessed until a
// tag pass completes for them.
type TagProcessor struct {
	JobQueue chan uuid.UUID
	Items    repository.ItemRepositoryInterface
	Tagger   *faces.Tagger
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[uuid.UUID]bool
	Mutex    sync.Mutex
}

func NewTagProcessor(items repository.ItemRepositoryInterface, tagger *faces.Tagger, queueSize, numWorkers int) *TagProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &TagProcessor{
		JobQueue: make(chan uuid.UUID, queueSize),
		Items:    items,
		Tagger:   tagger,
		StopChan: make(chan struct{}),
		Pending:  make(map[uuid.UUID]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d tagging worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (tp *TagProcessor) worker(id int) {
	defer tp.Wg.Done()

	log.Printf("Tagging worker %d started", id)
	for {
		select {
		case itemID, ok := <-tp.JobQueue:
			if !ok {
				log.Printf("Tagging worker %d stopping: Job queue closed", id)
				return
			}

			tp.processItem(id, itemID)

			tp.Mutex.Lock()
			delete(tp.Pending, itemID)
			tp.Mutex.Unlock()

		case <-tp.StopChan:
			log.Printf("Tagging worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (tp *TagProcessor) processItem(workerID int, itemID uuid.UUID) {
	item, err := tp.Items.GetByID(itemID)
	if err != nil {
		log.Printf("Worker %d: ERROR loading item %s: %v. Skipping job.", workerID, itemID, err)
		return
	}
	if item.Processed {
		return
	}

	// a failed pass is logged only; the item stays unprocessed and the
	// sweeper retries it
	if err := tp.Tagger.Tag(context.Background(), item); err != nil {
		log.Printf("Worker %d: ERROR tagging item %s: %v", workerID, itemID, err)
	}
}

// QueueItem queues an item for tagging if it is not already pending.
// Returns false when the item was pending or the queue is full.
func (tp *TagProcessor) QueueItem(itemID uuid.UUID) bool {
	tp.Mutex.Lock()
	if tp.Pending[itemID] {
		tp.Mutex.Unlock()
		return false
	}
	tp.Pending[itemID] = true
	tp.Mutex.Unlock()

	select {
	case tp.JobQueue <- itemID:
		return true
	default:
		log.Printf("WARNING: Tagging job queue full. Failed to queue item %s", itemID)
		tp.Mutex.Lock()
		delete(tp.Pending, itemID)
		tp.Mutex.Unlock()
		return false
	}
}

func (tp *TagProcessor) Stop() {
	log.Println("Stopping tagging workers...")
	close(tp.StopChan)
	tp.Wg.Wait()
	log.Println("All tagging workers stopped")
}
