package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// Store is the persistence boundary used by the services. Lookups of missing
// rows return apperr.ErrNotFound; unique and foreign-key violations come back
// as apperr errors.
type Store interface {
	// InTx runs fn in one transaction. Every write made through the Store
	// passed to fn commits together, or none does when fn returns an error.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CategoryStore
	AttributeStore
	ProductStore
	VariantStore
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int) error
	CategorySlugTaken(ctx context.Context, slug string, excludeID int) (bool, error)
	CountProductsInCategory(ctx context.Context, categoryID int) (int, error)
}

// AttributeStore persists attributes and their values.
type AttributeStore interface {
	CreateAttribute(ctx context.Context, a *models.Attribute) error
	GetAttribute(ctx context.Context, id int) (*models.Attribute, error)
	ListAttributes(ctx context.Context) ([]models.Attribute, error)
	UpdateAttribute(ctx context.Context, a *models.Attribute) error
	DeleteAttribute(ctx context.Context, id int) error
	AttributeSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error)

	CreateAttributeValue(ctx context.Context, v *models.AttributeValue) error
	UpdateAttributeValue(ctx context.Context, v *models.AttributeValue) error
	DeleteAttributeValues(ctx context.Context, ids []int) error
	// ResolveValues returns one combination item per existing value id.
	ResolveValues(ctx context.Context, valueIDs []int) ([]models.CombinationItem, error)
	// ValuesInUse returns the subset of valueIDs referenced by variants of live products.
	ValuesInUse(ctx context.Context, valueIDs []int) ([]int, error)
	// ProductsUsingValues returns ids of live products with a variant referencing any of valueIDs.
	ProductsUsingValues(ctx context.Context, valueIDs []int) ([]int, error)
}

// ProductStore persists products. Soft-deleted products are invisible to
// every read except ListProducts with Trashed set.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	SoftDeleteProduct(ctx context.Context, id int) error
	RestoreProduct(ctx context.Context, id int) error
	ProductSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error)
	ProductSKUTaken(ctx context.Context, sku string, excludeID int) (bool, error)
	// ImageInUse reports whether any product, variant or category references path.
	ImageInUse(ctx context.Context, path string) (bool, error)
}

// VariantStore persists variants and their attribute-value join rows.
type VariantStore interface {
	// ListVariants returns the variants of a product with their combinations.
	ListVariants(ctx context.Context, productID int) ([]models.ProductVariant, error)
	// ListVariantPrices returns variants (without combinations) grouped by product.
	ListVariantPrices(ctx context.Context, productIDs []int) (map[int][]models.ProductVariant, error)
	CreateVariant(ctx context.Context, v *models.ProductVariant) error
	UpdateVariant(ctx context.Context, v *models.ProductVariant) error
	// DeleteVariants removes the variants and their join rows.
	DeleteVariants(ctx context.Context, ids []int) error
	AttachVariantValues(ctx context.Context, variantID int, valueIDs []int) error
	DetachVariantValues(ctx context.Context, variantID int, valueIDs []int) error
	// VariantSKUsTaken returns which of skus are used by other products or their variants.
	VariantSKUsTaken(ctx context.Context, skus []string, productID int) ([]string, error)
}

// ProductFilter narrows ListProducts. Page starts at 1.
type ProductFilter struct {
	CategoryID *int
	Featured   *bool
	Search     string
	Trashed    bool
	Page       int
	Limit      int
}

// PGStore implements Store on PostgreSQL through sqlx.
type PGStore struct {
	db   *sqlx.DB
	q    sqlx.ExtContext
	inTx bool
}

// NewPGStore creates a new PGStore.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db, q: db}
}

// InTx implements Store. Nested calls join the outer transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&PGStore{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// execOne runs a statement that must touch at least one row.
func (s *PGStore) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
