package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/database/categories"
)

type CategoriesController struct {
	categories *categories.Repository
}

func NewCategoriesController(repo *categories.Repository) *CategoriesController {
	return &CategoriesController{categories: repo}
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (controller *CategoriesController) GetAllCategories(c *gin.Context) {
	all, err := controller.categories.GetAllCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"categories": all, "count": len(all)})
}

func (controller *CategoriesController) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondBadRequest(c, "name is required")
		return
	}

	category, created, err := controller.categories.GetOrCreateCategory(name)
	if err != nil {
		respondInternalError(c, err, "create category")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, category)
}

// UpdateCategory renames a category. Renaming onto another category's
// name conflicts rather than merging.
func (controller *CategoriesController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondBadRequest(c, "name is required")
		return
	}

	category, err := controller.categories.RenameCategory(id, name)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "category")
		case errors.Is(err, categories.ErrCategoryExists):
			respondConflict(c, err.Error(), "category_exists")
		default:
			respondInternalError(c, err, "rename category")
		}
		return
	}
	c.JSON(http.StatusOK, category)
}

func (controller *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := controller.categories.DeleteCategory(id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(c, "category")
		case errors.Is(err, categories.ErrCategoryInUse):
			respondConflict(c, err.Error(), "category_in_use")
		default:
			respondInternalError(c, err, "delete category")
		}
		return
	}
	respondSuccess(c, "category deleted")
}
