package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/progress"
)

type StatsController struct {
	progress *progress.Service
}

func NewStatsController(service *progress.Service) *StatsController {
	return &StatsController{progress: service}
}

// GetMonthly reports the user's pages read against their goal for a
// month. Accepts ?month=YYYY-MM (default current) and ?goal=N to
// override the stored goal for this request only.
func (controller *StatsController) GetMonthly(c *gin.Context) {
	month, ok := parseMonthQuery(c)
	if !ok {
		return
	}

	var overrideGoal *int
	if raw := c.Query("goal"); raw != "" {
		goal, err := strconv.Atoi(raw)
		if err != nil || goal < 0 {
			respondBadRequest(c, "invalid goal")
			return
		}
		overrideGoal = &goal
	}

	report, err := controller.progress.MonthlyProgress(GetUserID(c), month, overrideGoal)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "monthly stats")
		return
	}
	c.IndentedJSON(http.StatusOK, report)
}

// GetStreak returns the user's live reading streak in days.
func (controller *StatsController) GetStreak(c *gin.Context) {
	streak, err := controller.progress.LiveStreak(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "streak")
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak_days": streak})
}

// GetSummary returns the dashboard card numbers.
func (controller *StatsController) GetSummary(c *gin.Context) {
	summary, err := controller.progress.Summarize(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "summary")
		return
	}
	c.IndentedJSON(http.StatusOK, summary)
}
