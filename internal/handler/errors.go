package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	var (
		verr   *apperr.ValidationError
		fe     *apperr.FieldError
		fields []apperr.FieldError
	)
	if errors.As(err, &fe) {
		fields = []apperr.FieldError{*fe}
	}

	switch {
	case errors.As(err, &verr):
		utils.ErrorWithFields(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", verr.Fields)
	case errors.Is(err, apperr.ErrValidation):
		utils.ErrorWithFields(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", fields)
	case errors.Is(err, apperr.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, apperr.ErrDuplicateSlug):
		utils.ErrorWithFields(c, http.StatusConflict, "DUPLICATE_SLUG", err.Error(), fields)
	case errors.Is(err, apperr.ErrDuplicateSKU):
		utils.ErrorWithFields(c, http.StatusConflict, "DUPLICATE_SKU", err.Error(), fields)
	case errors.Is(err, apperr.ErrDuplicateCombination):
		utils.Error(c, http.StatusConflict, "DUPLICATE_COMBINATION", err.Error())
	case errors.Is(err, apperr.ErrInUse):
		utils.ErrorWithFields(c, http.StatusConflict, "IN_USE", err.Error(), fields)
	case errors.Is(err, apperr.ErrEmptySelection):
		utils.Error(c, http.StatusUnprocessableEntity, "EMPTY_SELECTION", err.Error())
	case errors.Is(err, apperr.ErrReconciliationFailed):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("variant reconciliation failed")
		utils.Error(c, http.StatusInternalServerError, "RECONCILIATION_FAILED", "Failed to save product variants")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// paramID parses the :id path parameter, answering 400 when it is not a
// positive integer.
func paramID(c *gin.Context, what string) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}
