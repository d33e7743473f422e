package progress

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/entities"
)

// Instruction is one page-delta request: exactly one of AbsolutePage
// ("I'm now on page N") or DeltaPages ("I read N more pages") must be
// set. Day defaults to today.
type Instruction struct {
	Day          *time.Time
	AbsolutePage *int
	DeltaPages   *int
	Note         string
}

// Result is the committed outcome of a page delta. Entry is nil when the
// day bucket was deleted or never created. Created reports whether a new
// day bucket was inserted, for 201-vs-200 mapping.
type Result struct {
	Link    *entities.UserBook
	Entry   *entities.ReadingLog
	Created bool
}

// ApplyPageDelta resolves an instruction into a ledger mutation for
// (user, book) and reconciles the cached progress, all inside one
// transaction under the pair's exclusive lock. Any failure rolls the
// whole operation back.
func (s *Service) ApplyPageDelta(ctx context.Context, userID, bookID uint, instruction Instruction) (*Result, error) {
	if err := instruction.validate(); err != nil {
		return nil, err
	}

	day := readinglogs.Day(s.now())
	if instruction.Day != nil {
		day = readinglogs.Day(*instruction.Day)
	}

	release, err := s.locks.acquire(ctx, lockKey(userID, bookID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getUser(tx, userID); err != nil {
			return err
		}
		book, err := s.getBook(tx, bookID)
		if err != nil {
			return err
		}

		link, _, err := s.links(tx).ResolveLink(userID, bookID)
		if err != nil {
			return err
		}
		previousTotal := link.CurrentPage

		delta := instruction.delta(previousTotal)

		// A positive delta may not push the cached page past the book's
		// total.
		if delta > 0 {
			if room := book.TotalPages - previousTotal; delta > room {
				delta = room
			}
			if delta < 0 {
				delta = 0
			}
		}

		entry, err := s.logs(tx).GetEntry(userID, bookID, day)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		mutated := false
		switch {
		case entry == nil && delta < 0:
			return ErrInsufficientLoggedPages

		case entry == nil && delta == 0:
			// Nothing logged, nothing to change.

		case entry == nil:
			entry = &entities.ReadingLog{
				UserID:    userID,
				BookID:    bookID,
				Day:       day,
				PagesRead: delta,
				Note:      instruction.Note,
			}
			if err := s.logs(tx).CreateEntry(entry); err != nil {
				return err
			}
			result.Created = true
			mutated = true

		default:
			newPages := entry.PagesRead + delta
			switch {
			case newPages < 0:
				return ErrOverReduction
			case newPages == 0:
				if err := s.logs(tx).DeleteEntry(entry.ID); err != nil {
					return err
				}
				entry = nil
				mutated = true
			case delta != 0:
				if err := s.logs(tx).UpdatePages(entry.ID, newPages); err != nil {
					return err
				}
				entry.PagesRead = newPages
				mutated = true
			}
		}

		if mutated {
			state := &linkState{
				ID:          link.ID,
				UserID:      link.UserID,
				BookID:      link.BookID,
				TotalPages:  book.TotalPages,
				CurrentPage: link.CurrentPage,
				CompletedAt: link.CompletedAt,
			}
			if err := s.reconcile(tx, state); err != nil {
				return err
			}
			link.CurrentPage = state.CurrentPage
			link.CompletedAt = state.CompletedAt
		}

		result.Link = link
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (i Instruction) validate() error {
	if (i.AbsolutePage == nil) == (i.DeltaPages == nil) {
		return ErrInvalidInstruction
	}
	if i.DeltaPages != nil && *i.DeltaPages < 1 {
		return ErrInvalidInstruction
	}
	return nil
}

// delta converts the instruction into a signed page delta against the
// link's pre-operation total. DeltaPages is always positive; decreases
// only happen through an AbsolutePage below the current total.
func (i Instruction) delta(previousTotal int) int {
	if i.DeltaPages != nil {
		return *i.DeltaPages
	}
	target := *i.AbsolutePage
	if target < 0 {
		target = 0
	}
	return target - previousTotal
}
