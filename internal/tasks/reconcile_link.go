package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/readledger/readledger/internal/progress"
)

// ReconcileLinkTask recomputes the cached progress of one (user, book)
// pair from the reading ledger. The nightly sweep enqueues one of these
// per link so a stuck pair retries without blocking the rest.
type ReconcileLinkTask struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileLinkTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_link",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

// ReconcileLinkProcessor creates a processor function for ReconcileLinkTask.
func ReconcileLinkProcessor(service *progress.Service) backlite.QueueProcessor[ReconcileLinkTask] {
	return func(ctx context.Context, task ReconcileLinkTask) error {
		if service == nil {
			return fmt.Errorf("progress service not configured")
		}

		err := service.Reconcile(ctx, task.UserID, task.BookID)
		if err != nil {
			// The link or book was deleted between enqueue and run.
			if errors.Is(err, progress.ErrNotFound) {
				log.Printf("[TASK] Skipping reconcile for user %d book %d: gone", task.UserID, task.BookID)
				return nil
			}
			return fmt.Errorf("reconcile user %d book %d: %w", task.UserID, task.BookID, err)
		}
		return nil
	}
}

// NewReconcileLinkQueue creates a backlite queue for reconciliation tasks.
func NewReconcileLinkQueue(service *progress.Service) backlite.Queue {
	return backlite.NewQueue(ReconcileLinkProcessor(service))
}
