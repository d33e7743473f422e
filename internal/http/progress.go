package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/progress"
)

type ProgressController struct {
	progress *progress.Service
}

func NewProgressController(service *progress.Service) *ProgressController {
	return &ProgressController{progress: service}
}

type progressRequest struct {
	Day          string `json:"day"`
	AbsolutePage *int   `json:"absolute_page"`
	DeltaPages   *int   `json:"delta_pages"`
	Note         string `json:"note"`
}

// LogProgress applies a page instruction to the requesting user's ledger
// for a book. Returns 201 when a new day entry was created, 200 otherwise.
func (controller *ProgressController) LogProgress(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	instruction := progress.Instruction{
		AbsolutePage: req.AbsolutePage,
		DeltaPages:   req.DeltaPages,
		Note:         req.Note,
	}
	if req.Day != "" {
		day, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			respondBadRequest(c, "invalid day, expected YYYY-MM-DD")
			return
		}
		instruction.Day = &day
	}

	result, err := controller.progress.ApplyPageDelta(c.Request.Context(), GetUserID(c), bookID, instruction)
	if err != nil {
		controller.respondProgressError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"progress": result.Link,
		"entry":    result.Entry,
	})
}

func (controller *ProgressController) respondProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidInstruction):
		respondBadRequest(c, err.Error())
	case errors.Is(err, progress.ErrInsufficientLoggedPages):
		respondConflict(c, err.Error(), "insufficient_logged_pages")
	case errors.Is(err, progress.ErrOverReduction):
		respondConflict(c, err.Error(), "over_reduction")
	case errors.Is(err, progress.ErrNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, progress.ErrBusy):
		respondError(c, http.StatusServiceUnavailable, "progress update in flight, retry")
	default:
		respondInternalError(c, err, "log progress")
	}
}
