package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// PeriodicTask runs one named task at a fixed interval. SingletonMode
// guarantees a slow run is never overlapped by the next tick. A task
// error is logged and the schedule continues, unless stopOnError is
// set, in which case the scheduler shuts down and leaves recovery to a
// process restart.
type PeriodicTask struct {
	name        string
	interval    time.Duration
	stopOnError bool
	task        func() error
	scheduler   *gocron.Scheduler
}

func NewPeriodicTask(name string, interval time.Duration, stopOnError bool, task func() error) *PeriodicTask {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &PeriodicTask{
		name:        name,
		interval:    interval,
		stopOnError: stopOnError,
		task:        task,
		scheduler:   s,
	}
}

// Start schedules the task and returns immediately; runs happen on the
// scheduler's own goroutine.
func (p *PeriodicTask) Start() error {
	_, err := p.scheduler.Every(p.interval).Do(func() {
		log.Printf("scheduler: running task '%s'", p.name)
		if err := p.task(); err != nil {
			log.Printf("scheduler: task '%s' failed: %v", p.name, err)
			if p.stopOnError {
				log.Printf("scheduler: stopping schedule for '%s' after failure", p.name)
				p.scheduler.Stop()
			}
			return
		}
		log.Printf("scheduler: task '%s' completed", p.name)
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	log.Printf("scheduler: task '%s' scheduled every %s", p.name, p.interval)
	return nil
}

func (p *PeriodicTask) Stop() {
	p.scheduler.Stop()
}
