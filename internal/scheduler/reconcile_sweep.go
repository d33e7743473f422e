// Package scheduler runs the nightly ledger reconciliation sweep.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/readledger/readledger/internal/database/userbooks"
	"github.com/readledger/readledger/internal/tasks"
)

// ReconcileSweepScheduler periodically re-derives every user-book's
// cached progress from the reading ledger. The cache should already be
// consistent after every write; the sweep heals out-of-band edits and
// anything a crash left half-done.
type ReconcileSweepScheduler struct {
	userBooks  *userbooks.Repository
	taskClient *tasks.Client
	schedule   string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// NewReconcileSweepScheduler creates a new scheduler instance. schedule
// is a five-field cron expression.
func NewReconcileSweepScheduler(userBooks *userbooks.Repository, taskClient *tasks.Client, schedule string) *ReconcileSweepScheduler {
	return &ReconcileSweepScheduler{
		userBooks:  userBooks,
		taskClient: taskClient,
		schedule:   schedule,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *ReconcileSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile sweep '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reconcile sweep scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *ReconcileSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reconcile sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *ReconcileSweepScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *ReconcileSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur.
func (s *ReconcileSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSweep enqueues one reconciliation task per user-book link. The
// actual recompute runs through the task queue so one stuck pair retries
// without holding up the rest.
func (s *ReconcileSweepScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("Reconcile sweep: skipped (already sweeping)")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	start := time.Now()

	links, err := s.userBooks.GetAllLinks()
	if err != nil {
		log.Printf("Reconcile sweep: failed to list links: %v", err)
		return
	}

	enqueued := 0
	for _, link := range links {
		_, err := s.taskClient.Add(tasks.ReconcileLinkTask{
			UserID: link.UserID,
			BookID: link.BookID,
		}).Save()
		if err != nil {
			log.Printf("Reconcile sweep: warning - failed to enqueue user %d book %d: %v",
				link.UserID, link.BookID, err)
			continue
		}
		enqueued++
	}

	log.Printf("Reconcile sweep: enqueued %d of %d links in %v",
		enqueued, len(links), time.Since(start).Round(time.Millisecond))
}
