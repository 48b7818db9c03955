package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

const productColumns = `id, category_id, name, slug, description, short_description, price, sale_price,
        stock_quantity, sku, is_variable, is_featured, featured_image_path, gallery_image_paths,
        deleted_at, created_at, updated_at`

// CreateProduct inserts a product and fills its id and timestamps.
func (s *PGStore) CreateProduct(ctx context.Context, p *models.Product) error {
	const q = `
        INSERT INTO products (category_id, name, slug, description, short_description, price, sale_price,
            stock_quantity, sku, is_variable, is_featured, featured_image_path, gallery_image_paths)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		p.CategoryID, p.Name, p.Slug, p.Description, p.ShortDescription, p.Price, p.SalePrice,
		p.StockQuantity, p.SKU, p.IsVariable, p.IsFeatured, p.FeaturedImagePath, p.GalleryImagePaths,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

// GetProduct returns a live (not soft-deleted) product without variants.
func (s *PGStore) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	var p models.Product
	if err := sqlx.GetContext(ctx, s.q, &p, q, id); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// ListProducts returns one page of products and the total count for f.
// Trashed lists soft-deleted products instead of live ones.
func (s *PGStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}

	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Trashed {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = "+arg(*f.CategoryID))
	}
	if f.Featured != nil {
		where = append(where, "is_featured = "+arg(*f.Featured))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + search + "%")
		where = append(where, "(name ILIKE "+p+" OR sku ILIKE "+p+")")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, s.q, &total, `SELECT COUNT(1) FROM products`+clause, args...); err != nil {
		return nil, 0, mapError(err)
	}

	listQuery := `SELECT ` + productColumns + ` FROM products` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg((f.Page-1)*f.Limit)
	var products []models.Product
	if err := sqlx.SelectContext(ctx, s.q, &products, listQuery, args...); err != nil {
		return nil, 0, mapError(err)
	}
	return products, total, nil
}

// UpdateProduct writes every mutable column of a live product.
func (s *PGStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	const q = `
        UPDATE products
        SET category_id = $1, name = $2, slug = $3, description = $4, short_description = $5,
            price = $6, sale_price = $7, stock_quantity = $8, sku = $9, is_variable = $10,
            is_featured = $11, featured_image_path = $12, gallery_image_paths = $13, updated_at = NOW()
        WHERE id = $14 AND deleted_at IS NULL
        RETURNING updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		p.CategoryID, p.Name, p.Slug, p.Description, p.ShortDescription,
		p.Price, p.SalePrice, p.StockQuantity, p.SKU, p.IsVariable,
		p.IsFeatured, p.FeaturedImagePath, p.GalleryImagePaths, p.ID,
	).Scan(&p.UpdatedAt)
	return mapError(err)
}

// SoftDeleteProduct marks a product deleted and drops its image references.
func (s *PGStore) SoftDeleteProduct(ctx context.Context, id int) error {
	const q = `
        UPDATE products
        SET deleted_at = NOW(), featured_image_path = NULL, gallery_image_paths = '[]'::jsonb, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL`
	return s.execOne(ctx, q, id)
}

// RestoreProduct clears the soft-delete marker.
func (s *PGStore) RestoreProduct(ctx context.Context, id int) error {
	const q = `UPDATE products SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`
	return s.execOne(ctx, q, id)
}

// ProductSlugTaken checks slug against every product, trashed ones included,
// since the unique index covers them too.
func (s *PGStore) ProductSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`
	var taken bool
	err := sqlx.GetContext(ctx, s.q, &taken, q, slug, excludeID)
	return taken, mapError(err)
}

// ProductSKUTaken checks sku against every other product and its variants.
func (s *PGStore) ProductSKUTaken(ctx context.Context, sku string, excludeID int) (bool, error) {
	const q = `
        SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1 AND id <> $2)
            OR EXISTS (SELECT 1 FROM product_variants WHERE sku = $1 AND product_id <> $2)`
	var taken bool
	err := sqlx.GetContext(ctx, s.q, &taken, q, sku, excludeID)
	return taken, mapError(err)
}

// ImageInUse reports whether any row still references path.
func (s *PGStore) ImageInUse(ctx context.Context, path string) (bool, error) {
	const q = `
        SELECT EXISTS (SELECT 1 FROM products
                       WHERE featured_image_path = $1 OR gallery_image_paths @> jsonb_build_array($1::text))
            OR EXISTS (SELECT 1 FROM product_variants WHERE image_path = $1)
            OR EXISTS (SELECT 1 FROM categories WHERE image_path = $1)`
	var used bool
	err := sqlx.GetContext(ctx, s.q, &used, q, path)
	return used, mapError(err)
}
