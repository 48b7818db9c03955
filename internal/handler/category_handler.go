package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

type categoryService interface {
	Create(ctx context.Context, in *service.CategoryInput) (*service.CategoryDetail, error)
	Get(ctx context.Context, id int) (*service.CategoryDetail, error)
	List(ctx context.Context) ([]service.CategoryDetail, error)
	Update(ctx context.Context, id int, in *service.CategoryInput) (*service.CategoryDetail, error)
	Delete(ctx context.Context, id int) error
}

// CategoryHandler handles category CRUD HTTP endpoints.
type CategoryHandler struct {
	categories categoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(categories categoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// ListCategories handles GET /v1/admin/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categories retrieved", list)
}

// GetCategory handles GET /v1/admin/categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Category retrieved", category)
}

// CreateCategory handles POST /v1/admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	category, err := h.categories.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Category created successfully", category)
}

// UpdateCategory handles PUT /v1/admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	category, err := h.categories.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Category updated successfully", category)
}

// DeleteCategory handles DELETE /v1/admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "category")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Category deleted successfully", nil)
}
