package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// CreateAttribute inserts the attribute row only; values are created separately.
func (s *PGStore) CreateAttribute(ctx context.Context, a *models.Attribute) error {
	const q = `
        INSERT INTO attributes (name, slug, description)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q, a.Name, a.Slug, a.Description).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

// GetAttribute returns an attribute with its ordered values.
func (s *PGStore) GetAttribute(ctx context.Context, id int) (*models.Attribute, error) {
	const q = `SELECT * FROM attributes WHERE id = $1`
	var a models.Attribute
	if err := sqlx.GetContext(ctx, s.q, &a, q, id); err != nil {
		return nil, mapError(err)
	}

	const vq = `SELECT * FROM attribute_values WHERE attribute_id = $1 ORDER BY position, id`
	if err := sqlx.SelectContext(ctx, s.q, &a.Values, vq, id); err != nil {
		return nil, mapError(err)
	}
	if a.Values == nil {
		a.Values = []models.AttributeValue{}
	}
	return &a, nil
}

// ListAttributes returns every attribute with its ordered values.
func (s *PGStore) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	var attrs []models.Attribute
	if err := sqlx.SelectContext(ctx, s.q, &attrs, `SELECT * FROM attributes ORDER BY name`); err != nil {
		return nil, mapError(err)
	}

	var values []models.AttributeValue
	const vq = `SELECT * FROM attribute_values ORDER BY attribute_id, position, id`
	if err := sqlx.SelectContext(ctx, s.q, &values, vq); err != nil {
		return nil, mapError(err)
	}

	byAttr := make(map[int][]models.AttributeValue, len(attrs))
	for _, v := range values {
		byAttr[v.AttributeID] = append(byAttr[v.AttributeID], v)
	}
	for i := range attrs {
		attrs[i].Values = byAttr[attrs[i].ID]
		if attrs[i].Values == nil {
			attrs[i].Values = []models.AttributeValue{}
		}
	}
	return attrs, nil
}

// UpdateAttribute writes the attribute row.
func (s *PGStore) UpdateAttribute(ctx context.Context, a *models.Attribute) error {
	const q = `
        UPDATE attributes
        SET name = $1, slug = $2, description = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING updated_at`
	err := s.q.QueryRowxContext(ctx, q, a.Name, a.Slug, a.Description, a.ID).Scan(&a.UpdatedAt)
	return mapError(err)
}

// DeleteAttribute removes an attribute. Its values and their variant join
// rows go with it through ON DELETE CASCADE.
func (s *PGStore) DeleteAttribute(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM attributes WHERE id = $1`, id)
}

// AttributeSlugTaken reports whether another attribute already uses slug.
func (s *PGStore) AttributeSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM attributes WHERE slug = $1 AND id <> $2)`
	var taken bool
	err := sqlx.GetContext(ctx, s.q, &taken, q, slug, excludeID)
	return taken, mapError(err)
}

// CreateAttributeValue inserts a value.
func (s *PGStore) CreateAttributeValue(ctx context.Context, v *models.AttributeValue) error {
	const q = `
        INSERT INTO attribute_values (attribute_id, value, slug, position)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q, v.AttributeID, v.Value, v.Slug, v.Position).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	return mapError(err)
}

// UpdateAttributeValue rewrites a value in place, keeping its id.
func (s *PGStore) UpdateAttributeValue(ctx context.Context, v *models.AttributeValue) error {
	const q = `
        UPDATE attribute_values
        SET value = $1, slug = $2, position = $3, updated_at = NOW()
        WHERE id = $4 AND attribute_id = $5
        RETURNING created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q, v.Value, v.Slug, v.Position, v.ID, v.AttributeID).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	return mapError(err)
}

// DeleteAttributeValues removes values by id.
func (s *PGStore) DeleteAttributeValues(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.ExecContext(ctx, `DELETE FROM attribute_values WHERE id = ANY($1)`, pq.Array(int64s(ids)))
	return mapError(err)
}

// ResolveValues loads attribute names and value labels for value ids.
func (s *PGStore) ResolveValues(ctx context.Context, valueIDs []int) ([]models.CombinationItem, error) {
	if len(valueIDs) == 0 {
		return nil, nil
	}
	const q = `
        SELECT av.attribute_id, a.name AS attribute_name, av.id AS value_id, av.value
        FROM attribute_values av
        JOIN attributes a ON a.id = av.attribute_id
        WHERE av.id = ANY($1)
        ORDER BY av.attribute_id, av.position, av.id`
	var items []models.CombinationItem
	if err := sqlx.SelectContext(ctx, s.q, &items, q, pq.Array(int64s(valueIDs))); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

// ValuesInUse returns which of valueIDs are part of a live variant combination.
func (s *PGStore) ValuesInUse(ctx context.Context, valueIDs []int) ([]int, error) {
	if len(valueIDs) == 0 {
		return nil, nil
	}
	const q = `
        SELECT DISTINCT j.attribute_value_id
        FROM product_variant_attribute_values j
        JOIN product_variants pv ON pv.id = j.product_variant_id
        JOIN products p ON p.id = pv.product_id
        WHERE j.attribute_value_id = ANY($1) AND p.deleted_at IS NULL
        ORDER BY j.attribute_value_id`
	var ids []int
	if err := sqlx.SelectContext(ctx, s.q, &ids, q, pq.Array(int64s(valueIDs))); err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

// ProductsUsingValues returns live products having a variant with any of valueIDs.
func (s *PGStore) ProductsUsingValues(ctx context.Context, valueIDs []int) ([]int, error) {
	if len(valueIDs) == 0 {
		return nil, nil
	}
	const q = `
        SELECT DISTINCT pv.product_id
        FROM product_variant_attribute_values j
        JOIN product_variants pv ON pv.id = j.product_variant_id
        JOIN products p ON p.id = pv.product_id
        WHERE j.attribute_value_id = ANY($1) AND p.deleted_at IS NULL
        ORDER BY pv.product_id`
	var ids []int
	if err := sqlx.SelectContext(ctx, s.q, &ids, q, pq.Array(int64s(valueIDs))); err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}
