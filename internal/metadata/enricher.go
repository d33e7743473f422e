package metadata

import (
	"context"
	"fmt"

	"github.com/readledger/readledger/internal/entities"
)

// Provider defines the interface for fetching book metadata.
type Provider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookUpdater defines the interface for reading and updating catalog books.
type BookUpdater interface {
	GetBookByID(id uint) (*entities.Book, error)
	UpdateMetadata(id uint, fields entities.BookMetadataFields) error
}

// EnrichmentResult contains the outcome of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source"`
	SearchMethod  string         `json:"search_method"` // "isbn" or "title"
}

// Enricher fills in missing book metadata from an external catalog.
// It only ever touches cover URL, ISBN and the external catalog key;
// total_pages is part of a book's identity and is never rewritten.
type Enricher struct {
	provider Provider
	books    BookUpdater
}

// NewEnricher creates a new Enricher.
func NewEnricher(provider Provider, books BookUpdater) *Enricher {
	return &Enricher{
		provider: provider,
		books:    books,
	}
}

// EnrichBook fetches metadata for a book and updates it in the database.
// It tries ISBN first when the book has one, then falls back to a
// title+author search.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.books.GetBookByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	var metadata *BookMetadata
	searchMethod := "title"

	if book.ISBN != nil && *book.ISBN != "" {
		metadata, err = e.provider.SearchByISBN(ctx, *book.ISBN)
		if err == nil {
			searchMethod = "isbn"
		}
	}
	if metadata == nil {
		metadata, err = e.provider.SearchByTitle(ctx, book.Title, book.Author)
		if err != nil {
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
	}

	updates, fieldsUpdated := buildUpdates(book, metadata)
	if len(fieldsUpdated) > 0 {
		if err := e.books.UpdateMetadata(bookID, updates); err != nil {
			return nil, fmt.Errorf("update book metadata: %w", err)
		}
		book, err = e.books.GetBookByID(bookID)
		if err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        "openlibrary",
		SearchMethod:  searchMethod,
	}, nil
}

// buildUpdates compares the stored book with fetched metadata and keeps
// only fields that are currently missing or stale.
func buildUpdates(book *entities.Book, metadata *BookMetadata) (entities.BookMetadataFields, []string) {
	var updates entities.BookMetadataFields
	var fieldsUpdated []string

	if (book.ISBN == nil || *book.ISBN == "") && metadata.ISBN != "" {
		isbn := metadata.ISBN
		updates.ISBN = &isbn
		fieldsUpdated = append(fieldsUpdated, "isbn")
	}

	if metadata.CoverURL != "" && book.CoverURL != metadata.CoverURL {
		coverURL := metadata.CoverURL
		updates.CoverURL = &coverURL
		fieldsUpdated = append(fieldsUpdated, "cover_url")
	}

	if (book.ExternalID == nil || *book.ExternalID == "") && metadata.OpenLibraryKey != "" {
		key := metadata.OpenLibraryKey
		updates.ExternalID = &key
		fieldsUpdated = append(fieldsUpdated, "external_id")
	}

	return updates, fieldsUpdated
}
