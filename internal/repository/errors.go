package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError translates driver errors into the apperr taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgUniqueViolation:
		switch pqErr.Constraint {
		case "products_slug_key", "attributes_slug_key", "categories_slug_key":
			return apperr.Field(apperr.ErrDuplicateSlug, "slug", "slug is already taken")
		case "products_sku_key":
			return apperr.Field(apperr.ErrDuplicateSKU, "sku", "sku is already taken")
		case "product_variant_attribute_values_pkey":
			return apperr.Invalid("combination", "a variant cannot list the same value twice")
		}
		return fmt.Errorf("%w: %s", apperr.ErrValidation, pqErr.Message)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", apperr.ErrInUse, pqErr.Detail)
	}
	return err
}
