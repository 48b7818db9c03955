package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

type attributeService interface {
	Create(ctx context.Context, in *service.AttributeInput) (*models.Attribute, error)
	Get(ctx context.Context, id int) (*models.Attribute, error)
	List(ctx context.Context) ([]models.Attribute, error)
	Update(ctx context.Context, id int, in *service.AttributeInput) (*models.Attribute, error)
	Delete(ctx context.Context, id int) error
}

// AttributeHandler handles attribute CRUD HTTP endpoints.
type AttributeHandler struct {
	attributes attributeService
}

// NewAttributeHandler constructs an AttributeHandler.
func NewAttributeHandler(attributes attributeService) *AttributeHandler {
	return &AttributeHandler{attributes: attributes}
}

// ListAttributes handles GET /v1/admin/attributes
func (h *AttributeHandler) ListAttributes(c *gin.Context) {
	list, err := h.attributes.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Attributes retrieved", list)
}

// GetAttribute handles GET /v1/admin/attributes/:id
func (h *AttributeHandler) GetAttribute(c *gin.Context) {
	id, ok := paramID(c, "attribute")
	if !ok {
		return
	}
	a, err := h.attributes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Attribute retrieved", a)
}

// CreateAttribute handles POST /v1/admin/attributes
func (h *AttributeHandler) CreateAttribute(c *gin.Context) {
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	a, err := h.attributes.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Attribute created successfully", a)
}

// UpdateAttribute handles PUT /v1/admin/attributes/:id. The value list
// replaces the stored one.
func (h *AttributeHandler) UpdateAttribute(c *gin.Context) {
	id, ok := paramID(c, "attribute")
	if !ok {
		return
	}
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	a, err := h.attributes.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Attribute updated successfully", a)
}

// DeleteAttribute handles DELETE /v1/admin/attributes/:id
func (h *AttributeHandler) DeleteAttribute(c *gin.Context) {
	id, ok := paramID(c, "attribute")
	if !ok {
		return
	}
	if err := h.attributes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Attribute deleted successfully", nil)
}
