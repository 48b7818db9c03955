package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

type productService interface {
	Create(ctx context.Context, in *service.ProductInput) (*service.ProductDetail, error)
	Update(ctx context.Context, id int, in *service.ProductInput) (*service.ProductDetail, error)
	Delete(ctx context.Context, id int) error
	Restore(ctx context.Context, id int) (*service.ProductDetail, error)
	Get(ctx context.Context, id int) (*service.ProductDetail, error)
	List(ctx context.Context, f repository.ProductFilter) (*service.ProductList, error)
	GenerateVariations(ctx context.Context, in *service.GenerateInput) (*service.GenerateResult, error)
}

// ProductHandler handles product HTTP endpoints.
type ProductHandler struct {
	products productService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products productService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts handles GET /v1/admin/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Search:  c.Query("search"),
		Trashed: c.Query("trashed") == "true",
		Page:    1,
		Limit:   20,
	}
	if v := c.Query("categoryId"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.CategoryID = &id
		}
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true"
		filter.Featured = &featured
	}
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil {
			filter.Page = p
		}
	}
	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}

	result, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Products retrieved", result.Products, result.Page, result.Limit, result.TotalItems)
}

// GetProduct handles GET /v1/admin/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product retrieved", product)
}

// CreateProduct handles POST /v1/admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Product created successfully", product)
}

// UpdateProduct handles PUT /v1/admin/products/:id. Omitting "variations"
// keeps the current variants; sending a list replaces them.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /v1/admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product deleted successfully", nil)
}

// RestoreProduct handles POST /v1/admin/products/:id/restore
func (h *ProductHandler) RestoreProduct(c *gin.Context) {
	id, ok := paramID(c, "product")
	if !ok {
		return
	}
	product, err := h.products.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product restored successfully", product)
}

// GenerateVariations handles POST /v1/admin/products/variations/generate.
// It returns drafts only; nothing is stored.
func (h *ProductHandler) GenerateVariations(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.products.GenerateVariations(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	drafts := make([]draftResponse, 0, len(result.Variations))
	for _, s := range result.Variations {
		drafts = append(drafts, newDraftResponse(s))
	}
	utils.Success(c, http.StatusOK, "Variations generated", gin.H{
		"variations": drafts,
		"skipped":    result.Skipped,
	})
}
