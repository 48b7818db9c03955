package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// variantValueRow is one join row resolved to attribute and value labels.
type variantValueRow struct {
	VariantID int `db:"product_variant_id"`
	models.CombinationItem
}

// ListVariants returns a product's variants ordered by id, each with its
// combination ordered by attribute id.
func (s *PGStore) ListVariants(ctx context.Context, productID int) ([]models.ProductVariant, error) {
	const q = `SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id`
	var variants []models.ProductVariant
	if err := sqlx.SelectContext(ctx, s.q, &variants, q, productID); err != nil {
		return nil, mapError(err)
	}
	if len(variants) == 0 {
		return variants, nil
	}

	const jq = `
        SELECT j.product_variant_id, av.attribute_id, a.name AS attribute_name, av.id AS value_id, av.value
        FROM product_variant_attribute_values j
        JOIN product_variants pv ON pv.id = j.product_variant_id
        JOIN attribute_values av ON av.id = j.attribute_value_id
        JOIN attributes a ON a.id = av.attribute_id
        WHERE pv.product_id = $1
        ORDER BY j.product_variant_id, av.attribute_id`
	var rows []variantValueRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, jq, productID); err != nil {
		return nil, mapError(err)
	}

	byVariant := make(map[int][]models.CombinationItem, len(variants))
	for _, r := range rows {
		byVariant[r.VariantID] = append(byVariant[r.VariantID], r.CombinationItem)
	}
	for i := range variants {
		variants[i].Combination = byVariant[variants[i].ID]
		if variants[i].Combination == nil {
			variants[i].Combination = []models.CombinationItem{}
		}
	}
	return variants, nil
}

// ListVariantPrices loads variants of several products for price summaries.
func (s *PGStore) ListVariantPrices(ctx context.Context, productIDs []int) (map[int][]models.ProductVariant, error) {
	out := make(map[int][]models.ProductVariant, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	const q = `SELECT * FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, id`
	var variants []models.ProductVariant
	if err := sqlx.SelectContext(ctx, s.q, &variants, q, pq.Array(int64s(productIDs))); err != nil {
		return nil, mapError(err)
	}
	for _, v := range variants {
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, nil
}

// CreateVariant inserts a variant row.
func (s *PGStore) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	const q = `
        INSERT INTO product_variants (product_id, price, sale_price, stock_quantity, sku, image_path)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		v.ProductID, v.Price, v.SalePrice, v.StockQuantity, v.SKU, v.ImagePath,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	return mapError(err)
}

// UpdateVariant writes the scalar fields and image of a variant.
func (s *PGStore) UpdateVariant(ctx context.Context, v *models.ProductVariant) error {
	const q = `
        UPDATE product_variants
        SET price = $1, sale_price = $2, stock_quantity = $3, sku = $4, image_path = $5, updated_at = NOW()
        WHERE id = $6 AND product_id = $7
        RETURNING updated_at`
	err := s.q.QueryRowxContext(ctx, q,
		v.Price, v.SalePrice, v.StockQuantity, v.SKU, v.ImagePath, v.ID, v.ProductID,
	).Scan(&v.UpdatedAt)
	return mapError(err)
}

// DeleteVariants removes join rows first, then the variant rows.
func (s *PGStore) DeleteVariants(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	arr := pq.Array(int64s(ids))
	if _, err := s.q.ExecContext(ctx, `DELETE FROM product_variant_attribute_values WHERE product_variant_id = ANY($1)`, arr); err != nil {
		return mapError(err)
	}
	_, err := s.q.ExecContext(ctx, `DELETE FROM product_variants WHERE id = ANY($1)`, arr)
	return mapError(err)
}

// AttachVariantValues adds join rows; rows already present are left alone.
func (s *PGStore) AttachVariantValues(ctx context.Context, variantID int, valueIDs []int) error {
	if len(valueIDs) == 0 {
		return nil
	}
	const q = `
        INSERT INTO product_variant_attribute_values (product_variant_id, attribute_value_id)
        SELECT $1, v FROM unnest($2::bigint[]) AS v
        ON CONFLICT DO NOTHING`
	_, err := s.q.ExecContext(ctx, q, variantID, pq.Array(int64s(valueIDs)))
	return mapError(err)
}

// DetachVariantValues removes join rows.
func (s *PGStore) DetachVariantValues(ctx context.Context, variantID int, valueIDs []int) error {
	if len(valueIDs) == 0 {
		return nil
	}
	const q = `DELETE FROM product_variant_attribute_values WHERE product_variant_id = $1 AND attribute_value_id = ANY($2)`
	_, err := s.q.ExecContext(ctx, q, variantID, pq.Array(int64s(valueIDs)))
	return mapError(err)
}

// VariantSKUsTaken returns the skus already used by other products, either
// as a simple product sku or by one of their variants.
func (s *PGStore) VariantSKUsTaken(ctx context.Context, skus []string, productID int) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	const q = `
        SELECT sku FROM product_variants WHERE sku = ANY($1) AND product_id <> $2
        UNION
        SELECT sku FROM products WHERE sku = ANY($1) AND id <> $2
        ORDER BY sku`
	var taken []string
	if err := sqlx.SelectContext(ctx, s.q, &taken, q, pq.Array(skus), productID); err != nil {
		return nil, mapError(err)
	}
	return taken, nil
}
