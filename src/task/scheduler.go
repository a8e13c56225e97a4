package task

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Scheduler starts worker threads and bounds the number of task functions
// executing at the same time. A worker holds a slot only while its function
// runs; an idle worker waiting for its next run holds none.
type Scheduler struct {
	group errgroup.Group
	slots *semaphore.Weighted

	running   int32
	executing int32

	logger *logrus.Entry
}

// NewScheduler returns a scheduler allowing maxWorkers functions to execute
// at once. A non-positive maxWorkers means no limit.
func NewScheduler(maxWorkers int, logger *logrus.Entry) *Scheduler {
	s := &Scheduler{
		logger: logger,
	}
	if maxWorkers > 0 {
		s.slots = semaphore.NewWeighted(int64(maxWorkers))
	}
	return s
}

// Acquire takes an execution slot without blocking. It returns false if all
// the slots are taken.
func (s *Scheduler) Acquire() bool {
	if s.slots != nil && !s.slots.TryAcquire(1) {
		return false
	}
	atomic.AddInt32(&s.executing, 1)
	return true
}

// Release gives back a slot taken with Acquire.
func (s *Scheduler) Release() {
	atomic.AddInt32(&s.executing, -1)
	if s.slots != nil {
		s.slots.Release(1)
	}
}

// Spawn takes a slot for the first run of w and runs w on a new goroutine.
// It returns false if no slot is free.
func (s *Scheduler) Spawn(w *Worker) bool {
	if !s.Acquire() {
		return false
	}
	w.scheduler = s
	w.held = true

	s.group.Go(func() error {
		atomic.AddInt32(&s.running, 1)
		defer atomic.AddInt32(&s.running, -1)

		err := w.Run()
		if err != nil {
			s.logger.WithError(err).WithField("thread", w.ID()).Error("Worker failed")
		}
		return err
	})
	return true
}

// Running returns the number of worker goroutines, idle ones included.
func (s *Scheduler) Running() int {
	return int(atomic.LoadInt32(&s.running))
}

// Executing returns the number of slots taken.
func (s *Scheduler) Executing() int {
	return int(atomic.LoadInt32(&s.executing))
}

// Wait blocks until every worker returned, and returns the first error.
func (s *Scheduler) Wait() error {
	return s.group.Wait()
}
