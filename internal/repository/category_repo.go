package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// CreateCategory inserts a category and fills its id and timestamps.
func (s *PGStore) CreateCategory(ctx context.Context, c *models.Category) error {
	const q = `
        INSERT INTO categories (parent_id, name, slug, description, sort_order, image_path)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		c.ParentID, c.Name, c.Slug, c.Description, c.SortOrder, c.ImagePath,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

// GetCategory returns a single category by id.
func (s *PGStore) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	const q = `SELECT * FROM categories WHERE id = $1`
	var c models.Category
	if err := sqlx.GetContext(ctx, s.q, &c, q, id); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// ListCategories returns all categories in display order.
func (s *PGStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	const q = `SELECT * FROM categories ORDER BY sort_order, name`
	var out []models.Category
	if err := sqlx.SelectContext(ctx, s.q, &out, q); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// UpdateCategory writes every mutable column of c.
func (s *PGStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	const q = `
        UPDATE categories
        SET parent_id = $1, name = $2, slug = $3, description = $4,
            sort_order = $5, image_path = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		c.ParentID, c.Name, c.Slug, c.Description, c.SortOrder, c.ImagePath, c.ID,
	).Scan(&c.UpdatedAt)
	return mapError(err)
}

// DeleteCategory removes a category. Children keep existing with no parent.
func (s *PGStore) DeleteCategory(ctx context.Context, id int) error {
	return s.execOne(ctx, `DELETE FROM categories WHERE id = $1`, id)
}

// CategorySlugTaken reports whether another category already uses slug.
func (s *PGStore) CategorySlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`
	var taken bool
	err := sqlx.GetContext(ctx, s.q, &taken, q, slug, excludeID)
	return taken, mapError(err)
}

// CountProductsInCategory counts products of the category, trashed ones included.
func (s *PGStore) CountProductsInCategory(ctx context.Context, categoryID int) (int, error) {
	const q = `SELECT COUNT(1) FROM products WHERE category_id = $1`
	var n int
	err := sqlx.GetContext(ctx, s.q, &n, q, categoryID)
	return n, mapError(err)
}
