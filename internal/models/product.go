package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. A product is either simple (it is the
// purchasable unit itself) or variable (its variants are).
//
// When IsVariable is true the top-level Price, SalePrice, SKU and
// StockQuantity are zeroed; authoritative values live on the variants.
type Product struct {
	ID                int                 `db:"id" json:"id"`
	CategoryID        int                 `db:"category_id" json:"categoryId"`
	Name              string              `db:"name" json:"name"`
	Slug              string              `db:"slug" json:"slug"`
	Description       *string             `db:"description" json:"description,omitempty"`
	ShortDescription  *string             `db:"short_description" json:"shortDescription,omitempty"`
	Price             decimal.Decimal     `db:"price" json:"price"`
	SalePrice         decimal.NullDecimal `db:"sale_price" json:"salePrice"`
	StockQuantity     int                 `db:"stock_quantity" json:"stockQuantity"`
	SKU               *string             `db:"sku" json:"sku"`
	IsVariable        bool                `db:"is_variable" json:"isVariable"`
	IsFeatured        bool                `db:"is_featured" json:"isFeatured"`
	FeaturedImagePath *string             `db:"featured_image_path" json:"featuredImagePath,omitempty"`
	GalleryImagePaths GalleryPaths        `db:"gallery_image_paths" json:"galleryImagePaths"`
	DeletedAt         *time.Time          `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updatedAt"`

	Variants []ProductVariant `db:"-" json:"variants,omitempty"`
}

// ClearSimpleFields zeroes the top-level purchasable fields of a variable product.
func (p *Product) ClearSimpleFields() {
	p.Price = decimal.Zero
	p.SalePrice = decimal.NullDecimal{}
	p.SKU = nil
	p.StockQuantity = 0
}

// FinalPrice returns the price a customer pays. For a variable product it is
// the lowest price across its loaded variants.
func (p *Product) FinalPrice() decimal.Decimal {
	if !p.IsVariable {
		return FinalPrice(p.Price, p.SalePrice)
	}
	price, _ := variantsFinalPrice(p.Variants)
	return price
}

// IsOnSale reports whether FinalPrice comes from a sale price.
func (p *Product) IsOnSale() bool {
	if !p.IsVariable {
		return IsOnSale(p.Price, p.SalePrice)
	}
	_, onSale := variantsFinalPrice(p.Variants)
	return onSale
}

// GalleryPaths is an ordered list of blob paths stored as a JSONB array.
type GalleryPaths []string

// Value implements driver.Valuer. The JSON goes out as a string; lib/pq
// would encode []byte as bytea.
func (g GalleryPaths) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(g))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (g *GalleryPaths) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*g = GalleryPaths{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("gallery_image_paths: unsupported type")
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		return err
	}
	if paths == nil {
		paths = []string{}
	}
	*g = paths
	return nil
}

// Contains reports whether path is part of the gallery.
func (g GalleryPaths) Contains(path string) bool {
	for _, p := range g {
		if p == path {
			return true
		}
	}
	return false
}
