package progress

import "errors"

var (
	// ErrInvalidInstruction means the caller supplied both or neither of
	// absolute_page and delta_pages.
	ErrInvalidInstruction = errors.New("exactly one of absolute_page or delta_pages must be set")

	// ErrInsufficientLoggedPages means a negative delta targeted a day
	// with no ledger entry.
	ErrInsufficientLoggedPages = errors.New("no pages logged on that day to reduce")

	// ErrOverReduction means a negative delta exceeded the pages logged
	// on that day.
	ErrOverReduction = errors.New("cannot remove more pages than were logged that day")

	// ErrNotFound means the referenced user or book does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy means the per-book lock could not be acquired before the
	// caller's deadline. The operation had no effect and may be retried.
	ErrBusy = errors.New("book is busy, try again")
)
