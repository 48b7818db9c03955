package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		in    error
		want  error
		field string
	}{
		{"no rows", sql.ErrNoRows, apperr.ErrNotFound, ""},
		{"wrapped no rows", fmt.Errorf("get: %w", sql.ErrNoRows), apperr.ErrNotFound, ""},
		{"product slug", &pq.Error{Code: pgUniqueViolation, Constraint: "products_slug_key"}, apperr.ErrDuplicateSlug, "slug"},
		{"attribute slug", &pq.Error{Code: pgUniqueViolation, Constraint: "attributes_slug_key"}, apperr.ErrDuplicateSlug, "slug"},
		{"product sku", &pq.Error{Code: pgUniqueViolation, Constraint: "products_sku_key"}, apperr.ErrDuplicateSKU, "sku"},
		{"join pair", &pq.Error{Code: pgUniqueViolation, Constraint: "product_variant_attribute_values_pkey"}, apperr.ErrValidation, ""},
		{"foreign key", &pq.Error{Code: pgForeignKeyViolation, Constraint: "products_category_id_fkey"}, apperr.ErrInUse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			require.Error(t, got)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
			if tt.field != "" {
				var fe *apperr.FieldError
				require.True(t, errors.As(got, &fe))
				assert.Equal(t, tt.field, fe.Field)
			}
		})
	}

	assert.NoError(t, mapError(nil))
	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestInt64s(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, int64s([]int{1, 2, 3}))
	assert.Empty(t, int64s(nil))
}
