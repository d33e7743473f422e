package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/database/books"
	"github.com/readledger/readledger/internal/metadata"
	"github.com/readledger/readledger/internal/tasks"
)

type MetadataController struct {
	enricher   *metadata.Enricher
	books      *books.Repository
	taskClient *tasks.Client
}

func NewMetadataController(enricher *metadata.Enricher, bookRepo *books.Repository, taskClient *tasks.Client) *MetadataController {
	return &MetadataController{
		enricher:   enricher,
		books:      bookRepo,
		taskClient: taskClient,
	}
}

// EnrichBook fills in a book's missing cover, ISBN and catalog key from
// Open Library. With a task queue available the work runs in the
// background and the endpoint returns 202; otherwise it runs inline.
func (controller *MetadataController) EnrichBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.books.GetBookByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	if controller.taskClient != nil {
		_, err := controller.taskClient.Add(tasks.EnrichBookTask{BookID: id}).Save()
		if err != nil {
			respondInternalError(c, err, "enqueue enrichment")
			return
		}
		c.JSON(http.StatusAccepted, SuccessResponse{Message: "enrichment queued"})
		return
	}

	result, err := controller.enricher.EnrichBook(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "enrich book")
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}
