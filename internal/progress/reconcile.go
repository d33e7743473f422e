package progress

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// linkState is the slice of a UserBook row the reconciler reads and
// writes, plus the book's immutable page total. reconcile mutates it in
// place so callers return the refreshed cache without re-querying.
type linkState struct {
	ID          uint
	UserID      uint
	BookID      uint
	TotalPages  int
	CurrentPage int
	CompletedAt *time.Time
}

// reconcile recomputes the cached progress for a link from the ledger,
// inside the caller's transaction.
//
// current_page becomes clamp(sum of the book's ledger pages, 0,
// total_pages). completed_at is set the first time the total is reached,
// cleared when the page count drops back below it, and left alone
// otherwise, so repeated completions within one completed stretch keep
// their original timestamp. Only changed fields are written; with no
// ledger change the call is a no-op.
func (s *Service) reconcile(tx *gorm.DB, link *linkState) error {
	sum, err := s.logs(tx).SumPages(link.UserID, link.BookID)
	if err != nil {
		return err
	}

	current := sum
	if current < 0 {
		current = 0
	}
	if current > link.TotalPages {
		current = link.TotalPages
	}

	completedChanged := false
	completedAt := link.CompletedAt
	if current >= link.TotalPages && link.CompletedAt == nil {
		now := s.now()
		completedAt = &now
		completedChanged = true
	} else if current < link.TotalPages && link.CompletedAt != nil {
		completedAt = nil
		completedChanged = true
	}

	if current == link.CurrentPage && !completedChanged {
		return nil
	}

	if err := s.links(tx).UpdateProgress(link.ID, current, completedAt, completedChanged); err != nil {
		return err
	}

	link.CurrentPage = current
	link.CompletedAt = completedAt
	return nil
}

// Reconcile recomputes the cached progress for one (user, book) pair in
// its own transaction, under the same per-pair lock as page deltas. Used
// by the nightly sweep and the integrity audit; calling it twice with no
// intervening ledger change leaves the second call a no-op.
func (s *Service) Reconcile(ctx context.Context, userID, bookID uint) error {
	release, err := s.locks.acquire(ctx, lockKey(userID, bookID))
	if err != nil {
		return err
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.getBook(tx, bookID)
		if err != nil {
			return err
		}
		link, err := s.links(tx).GetLink(userID, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return s.reconcile(tx, &linkState{
			ID:          link.ID,
			UserID:      link.UserID,
			BookID:      link.BookID,
			TotalPages:  book.TotalPages,
			CurrentPage: link.CurrentPage,
			CompletedAt: link.CompletedAt,
		})
	})
}
