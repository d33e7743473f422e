package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/database/books"
	"github.com/readledger/readledger/internal/database/categories"
	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/database/userbooks"
)

type BooksController struct {
	books       *books.Repository
	categories  *categories.Repository
	userBooks   *userbooks.Repository
	readingLogs *readinglogs.Repository
}

func NewBooksController(
	bookRepo *books.Repository,
	categoryRepo *categories.Repository,
	userBookRepo *userbooks.Repository,
	logRepo *readinglogs.Repository,
) *BooksController {
	return &BooksController{
		books:       bookRepo,
		categories:  categoryRepo,
		userBooks:   userBookRepo,
		readingLogs: logRepo,
	}
}

type upsertBookRequest struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	TotalPages int    `json:"total_pages"`
	Category   string `json:"category"`
	CategoryID uint   `json:"category_id"`
	ISBN       string `json:"isbn"`
	ExternalID string `json:"external_id"`
	CoverURL   string `json:"cover_url"`
}

type editBookRequest struct {
	CategoryID *uint   `json:"category_id"`
	CoverURL   *string `json:"cover_url"`
}

type rateBookRequest struct {
	Rating *int `json:"rating"`
}

// GetAllBooks lists the catalog, optionally filtered by q, author,
// category_id, min_pages and max_pages query parameters.
func (controller *BooksController) GetAllBooks(c *gin.Context) {
	filter := books.Filter{
		Query:  c.Query("q"),
		Author: c.Query("author"),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid category_id")
			return
		}
		filter.CategoryID = uint(id)
	}
	if raw := c.Query("min_pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid min_pages")
			return
		}
		filter.MinPages = n
	}
	if raw := c.Query("max_pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid max_pages")
			return
		}
		filter.MaxPages = n
	}

	all, err := controller.books.GetAllBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": all, "count": len(all)})
}

// GetBook returns a single book together with the requesting user's
// progress link and ledger entries, when any exist.
func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.books.GetBookByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	response := gin.H{"book": book}

	link, err := controller.userBooks.GetLink(GetUserID(c), id)
	if err == nil {
		response["progress"] = link
		entries, err := controller.readingLogs.EntriesForBook(GetUserID(c), id)
		if err == nil {
			response["entries"] = entries
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternalError(c, err, "get book link")
		return
	}

	c.IndentedJSON(http.StatusOK, response)
}

// UpsertBook creates a book or returns the existing one matching the
// supplied identity. 201 on create, 200 when an existing book matched.
func (controller *BooksController) UpsertBook(c *gin.Context) {
	var req upsertBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		respondBadRequest(c, "title is required")
		return
	}

	categoryID := req.CategoryID
	if categoryID == 0 && strings.TrimSpace(req.Category) != "" {
		category, _, err := controller.categories.GetOrCreateCategory(strings.TrimSpace(req.Category))
		if err != nil {
			respondInternalError(c, err, "resolve category")
			return
		}
		categoryID = category.ID
	}

	book, created, err := controller.books.UpsertBook(books.UpsertInput{
		Title:      strings.TrimSpace(req.Title),
		Author:     strings.TrimSpace(req.Author),
		TotalPages: req.TotalPages,
		CategoryID: categoryID,
		ISBN:       strings.TrimSpace(req.ISBN),
		ExternalID: strings.TrimSpace(req.ExternalID),
		CoverURL:   req.CoverURL,
	})
	if err != nil {
		if errors.Is(err, books.ErrInvalidTotalPages) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "upsert book")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, book)
}

// EditBook reassigns a book's category or replaces its cover. Identity
// fields are immutable; the current page changes only through the
// progress endpoint.
func (controller *BooksController) EditBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req editBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.CategoryID != nil {
		if _, err := controller.categories.GetCategoryByID(*req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondNotFound(c, "category")
				return
			}
			respondInternalError(c, err, "resolve category")
			return
		}
	}

	book, err := controller.books.EditBook(id, books.EditInput{
		CategoryID: req.CategoryID,
		CoverURL:   req.CoverURL,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "edit book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// RateBook sets or clears the requesting user's 1 to 5 rating on a book
// they have started reading.
func (controller *BooksController) RateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req rateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		respondBadRequest(c, "rating must be between 1 and 5")
		return
	}

	link, err := controller.userBooks.UpdateRating(GetUserID(c), id, req.Rating)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book progress")
			return
		}
		respondInternalError(c, err, "rate book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": link})
}

// DeleteBook removes a book from the catalog along with every user's
// links and ledger entries for it.
func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.books.DeleteBook(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// GetCompletedBooks lists the requesting user's finished books, newest
// completion first.
func (controller *BooksController) GetCompletedBooks(c *gin.Context) {
	links, err := controller.userBooks.GetCompleted(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list completed books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": links, "count": len(links)})
}
